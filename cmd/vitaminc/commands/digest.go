package commands

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/blake2b"

	vcerrors "github.com/systmms/vitaminc/internal/errors"
	"github.com/systmms/vitaminc/pkg/protected"
)

func NewDigestCommand(env *Env) *cobra.Command {
	var alg string

	cmd := &cobra.Command{
		Use:   "digest [file]",
		Short: "Hash a file or stdin",
		Long: `Hash a file, or stdin when no file is given, and print the digest as hex.

The input is read into protected memory and wiped once hashed.

Examples:
  vitaminc digest secrets.bin
  echo -n hunter2 | vitaminc digest --alg blake2b`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			defer func() { _ = in.Close() }()

			switch alg {
			case "sha256":
				return printDigest[[32]byte](cmd, sha256.New, in)
			case "sha384":
				return printDigest[[48]byte](cmd, sha512.New384, in)
			case "sha512":
				return printDigest[[64]byte](cmd, sha512.New, in)
			case "blake2b":
				return printDigest[[32]byte](cmd, newBlake2b256, in)
			}
			return vcerrors.UserError{
				Message:    "Unknown digest algorithm " + alg,
				Suggestion: "Use sha256, sha384, sha512 or blake2b",
			}
		},
	}

	cmd.Flags().StringVar(&alg, "alg", "sha256", "Hash algorithm: sha256, sha384, sha512 or blake2b")

	return cmd
}

func newBlake2b256() hash.Hash {
	h, _ := blake2b.New256(nil) // only fails for oversized keys
	return h
}

func printDigest[A protected.DigestArray](cmd *cobra.Command, newHash func() hash.Hash, in protected.ByteSource) error {
	d, err := protected.NewDigest[A](newHash)
	if err != nil {
		return err
	}
	return printText(cmd, protected.NewExportable(d.Update(in).Finalize()))
}

// readInput reads the file named by args[0], or stdin when args is empty,
// into protected memory.
func readInput(cmd *cobra.Command, args []string) (*protected.Protected[[]byte], error) {
	if len(args) == 0 || args[0] == "-" {
		return readAll(cmd.InOrStdin())
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return readAll(f)
}
