package commands

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	vcerrors "github.com/systmms/vitaminc/internal/errors"
	"github.com/systmms/vitaminc/internal/keystore"
	"github.com/systmms/vitaminc/pkg/aead"
	"github.com/systmms/vitaminc/pkg/protected"
	"github.com/systmms/vitaminc/pkg/random"
)

func NewSealCommand(env *Env) *cobra.Command {
	var keyName, aad string

	cmd := &cobra.Command{
		Use:   "seal [file]",
		Short: "Encrypt a file or stdin with a stored key",
		Long: `Encrypt a file, or stdin when no file is given, with a 32-byte key from the
key store. The ciphertext is printed as hex.

The cipher is chosen by the cipher setting of the config file
(chacha20poly1305 or aes256gcm).

Examples:
  vitaminc keygen app-key
  vitaminc seal --key app-key --aad v1 config.json > config.json.sealed`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			pt := protected.NewExportable(in)
			defer func() { _ = pt.Close() }()

			a, rng, err := loadAead(cmd, env, keyName)
			if err != nil {
				return err
			}
			defer func() { _ = rng.Close() }()

			ct, err := a.EncryptWithAAD(pt, []byte(aad))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(ct))
			return err
		},
	}

	cmd.Flags().StringVar(&keyName, "key", "", "Name of the key in the key store (required)")
	cmd.Flags().StringVar(&aad, "aad", "", "Additional authenticated data")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

func NewOpenCommand(env *Env) *cobra.Command {
	var keyName, aad string

	cmd := &cobra.Command{
		Use:   "open [hex]",
		Short: "Decrypt output of seal",
		Long: `Decrypt a hex ciphertext produced by seal and write the plaintext to stdout.
The ciphertext is read from stdin when not given as an argument.

Examples:
  vitaminc open --key app-key --aad v1 < config.json.sealed`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ct, err := readCipherText(cmd, args)
			if err != nil {
				return err
			}

			a, rng, err := loadAead(cmd, env, keyName)
			if err != nil {
				return err
			}
			defer func() { _ = rng.Close() }()

			var pt protected.Exportable[[]byte]
			if err := a.DecryptWithAAD(ct, []byte(aad), &pt); err != nil {
				return err
			}
			defer func() { _ = pt.Close() }()
			return writeProtected(cmd.OutOrStdout(), &pt)
		},
	}

	cmd.Flags().StringVar(&keyName, "key", "", "Name of the key in the key store (required)")
	cmd.Flags().StringVar(&aad, "aad", "", "Additional authenticated data given to seal")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

// loadAead reads the named key and builds the configured cipher around it.
// The returned generator feeds nonces and must be closed by the caller.
func loadAead(cmd *cobra.Command, env *Env, keyName string) (*aead.Aead, *random.SafeRand, error) {
	ctx := cmd.Context()
	store, err := env.OpenStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	key, err := keystore.Load[[32]byte](ctx, store, keyName)
	if err != nil {
		return nil, nil, err
	}

	var core aead.Core
	switch cipher := env.definition().Cipher; cipher {
	case "aes256gcm":
		c, err := aead.NewAES256GCM(key)
		if err != nil {
			return nil, nil, err
		}
		core = c
	case "chacha20poly1305", "":
		c, err := aead.NewChaCha20Poly1305(key)
		if err != nil {
			return nil, nil, err
		}
		core = c
	default:
		_ = key.Close()
		return nil, nil, vcerrors.ConfigError{
			Field:      "cipher",
			Value:      cipher,
			Message:    "unknown cipher",
			Suggestion: "Use chacha20poly1305 or aes256gcm",
		}
	}

	rng, err := env.NewRand()
	if err != nil {
		return nil, nil, err
	}
	return aead.New(core, aead.NonceGeneratorFrom(rng)), rng, nil
}

func readCipherText(cmd *cobra.Command, args []string) (aead.CipherText, error) {
	var text []byte
	if len(args) == 1 && args[0] != "-" {
		text = []byte(args[0])
	} else {
		in, err := readAll(cmd.InOrStdin())
		if err != nil {
			return nil, err
		}
		text = in.RiskyUnwrap()
	}
	ct, err := hex.DecodeString(string(bytes.TrimSpace(text)))
	if err != nil {
		return nil, vcerrors.UserError{
			Message:    "Ciphertext is not valid hex",
			Details:    err.Error(),
			Suggestion: "Pass the exact output of vitaminc seal",
		}
	}
	return ct, nil
}
