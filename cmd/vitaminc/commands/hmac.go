package commands

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	vcerrors "github.com/systmms/vitaminc/internal/errors"
	"github.com/systmms/vitaminc/pkg/kms"
	"github.com/systmms/vitaminc/pkg/protected"
)

func NewHMACCommand(env *Env) *cobra.Command {
	var (
		keyID  string
		alg    string
		info   string
		verify string
	)

	cmd := &cobra.Command{
		Use:   "hmac [file]",
		Short: "Compute or verify an HMAC with an AWS KMS key",
		Long: `Compute an HMAC over a file, or stdin when no file is given, using an AWS KMS
HMAC key. The key never leaves KMS.

The key ID defaults to kms.key_id from the config file. --info appends a
non-secret context string to the message.

Examples:
  vitaminc hmac --key-id alias/app-mac token.bin
  vitaminc hmac --info session --verify 3f0a... token.bin`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if keyID == "" {
				keyID = env.definition().KMS.KeyID
			}
			if keyID == "" {
				return vcerrors.UserError{
					Message:    "No KMS key configured",
					Suggestion: "Use --key-id or set kms.key_id in the config file",
				}
			}

			in, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			client, err := env.KMSClient(cmd.Context())
			if err != nil {
				_ = in.Close()
				return err
			}

			req := hmacRequest{client: client, keyID: keyID, input: in, info: kms.Info(info), verify: verify}
			switch alg {
			case "sha256":
				return runHMAC[[32]byte](cmd, req)
			case "sha384":
				return runHMAC[[48]byte](cmd, req)
			case "sha512":
				return runHMAC[[64]byte](cmd, req)
			}
			_ = in.Close()
			return vcerrors.UserError{
				Message:    "Unknown MAC algorithm " + alg,
				Suggestion: "Use sha256, sha384 or sha512",
			}
		},
	}

	cmd.Flags().StringVar(&keyID, "key-id", "", "KMS key ID, ARN or alias")
	cmd.Flags().StringVar(&alg, "alg", "sha256", "MAC algorithm: sha256, sha384 or sha512")
	cmd.Flags().StringVar(&info, "info", "", "Context string appended to the message")
	cmd.Flags().StringVar(&verify, "verify", "", "Hex tag to verify instead of printing a new one")

	return cmd
}

type hmacRequest struct {
	client kms.Client
	keyID  string
	input  *protected.Protected[[]byte]
	info   kms.Info
	verify string
}

func runHMAC[A kms.MacSize](cmd *cobra.Command, req hmacRequest) error {
	ctx := cmd.Context()
	h := kms.NewHMAC[A](req.client, req.keyID).Consume(req.input)
	if req.info != "" {
		h.UpdateInfo(req.info)
	}
	defer func() { _ = h.Close() }()

	if req.verify == "" {
		tag, err := h.FinalizeFixed(ctx)
		if err != nil {
			return err
		}
		return printText(cmd, protected.NewExportable(tag))
	}

	var want protected.Exportable[A]
	if err := want.UnmarshalText(bytes.TrimSpace([]byte(req.verify))); err != nil {
		return vcerrors.UserError{
			Message:    "Tag is not valid hex of the right length",
			Details:    err.Error(),
			Suggestion: "Pass the exact output of vitaminc hmac with the same --alg",
		}
	}
	defer func() { _ = want.Close() }()

	ok, err := h.Verify(ctx, &want)
	if err != nil {
		return err
	}
	if !ok {
		return vcerrors.UserError{Message: "MAC does not match"}
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), "OK")
	return err
}
