package commands

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	vcerrors "github.com/systmms/vitaminc/internal/errors"
	"github.com/systmms/vitaminc/internal/keystore"
	"github.com/systmms/vitaminc/pkg/protected"
	"github.com/systmms/vitaminc/pkg/random"
)

var keySizes = []int{16, 24, 32, 48, 64}

func NewKeygenCommand(env *Env) *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "keygen [name]",
		Short: "Generate a random key",
		Long: `Generate a random key from the operating system's entropy source.

With a name the key is written to the configured key store and never printed.
Without one it is printed as hex.

Examples:
  # Create a 32-byte key for seal/open
  vitaminc keygen app-key

  # Print a throwaway 16-byte key
  vitaminc keygen --size 16`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(keySizes, size) {
				return vcerrors.UserError{
					Message:    fmt.Sprintf("Unsupported key size %d", size),
					Suggestion: fmt.Sprintf("Use one of %v", keySizes),
				}
			}

			rng, err := env.NewRand()
			if err != nil {
				return err
			}
			defer func() { _ = rng.Close() }()

			key, err := random.Bytes(rng, size)
			if err != nil {
				return err
			}
			exp := protected.NewExportable(key)

			if len(args) == 0 {
				return printText(cmd, exp)
			}

			ctx := cmd.Context()
			store, err := env.OpenStore(ctx)
			if err != nil {
				_ = exp.Close()
				return err
			}
			if err := keystore.Save(ctx, store, args[0], exp); err != nil {
				return err
			}
			env.Config.Logger.Info("Stored %d-byte key %q in %s", size, args[0], store.Name())
			return nil
		},
	}

	cmd.Flags().IntVar(&size, "size", 32, "Key size in bytes")

	return cmd
}

// printText writes the text encoding of e followed by a newline, then
// closes e and wipes the encoding.
func printText[T any](cmd *cobra.Command, e *protected.Exportable[T]) error {
	defer func() { _ = e.Close() }()
	text, err := e.MarshalText()
	if err != nil {
		return err
	}
	defer clear(text)
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", text)
	return err
}
