package commands

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	vcerrors "github.com/systmms/vitaminc/internal/errors"
	"github.com/systmms/vitaminc/internal/keystore"
	"github.com/systmms/vitaminc/pkg/permutation"
	"github.com/systmms/vitaminc/pkg/protected"
)

func NewPermuteCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "permute",
		Short: "Shuffle byte strings with a stored permutation key",
		Long: `Generate permutation keys and apply them to hex byte strings.

A key of size n reorders exactly n bytes. --inverse undoes a permutation.

Examples:
  vitaminc permute keygen shuffle --size 16
  vitaminc permute apply shuffle 000102030405060708090a0b0c0d0e0f
  vitaminc permute apply shuffle --inverse <hex>`,
	}

	cmd.AddCommand(newPermuteKeygenCommand(env), newPermuteApplyCommand(env))
	return cmd
}

func newPermuteKeygenCommand(env *Env) *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "keygen <name>",
		Short: "Generate a permutation key and store it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(permutation.Sizes, size) {
				return vcerrors.UserError{
					Message:    fmt.Sprintf("Unsupported permutation size %d", size),
					Suggestion: fmt.Sprintf("Use one of %v", permutation.Sizes),
				}
			}

			rng, err := env.NewRand()
			if err != nil {
				return err
			}
			defer func() { _ = rng.Close() }()

			key, err := permutation.Generate(rng, size)
			if err != nil {
				return err
			}
			defer func() { _ = key.Close() }()

			ctx := cmd.Context()
			store, err := env.OpenStore(ctx)
			if err != nil {
				return err
			}
			if err := keystore.Save(ctx, store, args[0], key.Export()); err != nil {
				return err
			}
			env.Config.Logger.Info("Stored %s as %q in %s", key, args[0], store.Name())
			return nil
		},
	}

	cmd.Flags().IntVar(&size, "size", 16, "Number of positions the key permutes")
	return cmd
}

func newPermuteApplyCommand(env *Env) *cobra.Command {
	var inverse bool

	cmd := &cobra.Command{
		Use:   "apply <name> [hex]",
		Short: "Permute a hex byte string with a stored key",
		Long: `Permute a hex byte string with a stored key and print the result as hex.
The input is read from stdin when not given as an argument.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readHexInput(cmd, args[1:])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := env.OpenStore(ctx)
			if err != nil {
				_ = in.Close()
				return err
			}
			exported, err := keystore.Load[permutation.Indices](ctx, store, args[0])
			if err != nil {
				_ = in.Close()
				return err
			}
			key, err := permutation.Import(exported)
			if err != nil {
				_ = in.Close()
				return err
			}
			defer func() { _ = key.Close() }()

			reorder := permutation.Permute[byte]
			if inverse {
				reorder = permutation.Depermute[byte]
			}
			out, err := reorder(key, in)
			if err != nil {
				_ = in.Close()
				return err
			}
			return printText(cmd, protected.NewExportable(out))
		},
	}

	cmd.Flags().BoolVar(&inverse, "inverse", false, "Undo the permutation instead of applying it")
	return cmd
}

// readHexInput decodes args[0], or stdin when args is empty, as hex into
// protected memory.
func readHexInput(cmd *cobra.Command, args []string) (*protected.Protected[[]byte], error) {
	var text *protected.Protected[[]byte]
	if len(args) == 1 && args[0] != "-" {
		text = protected.New([]byte(args[0]))
	} else {
		var err error
		if text, err = readAll(cmd.InOrStdin()); err != nil {
			return nil, err
		}
	}
	defer func() { _ = text.Close() }()

	var decoded protected.Exportable[[]byte]
	var err error
	text.Update(func(b *[]byte) { err = decoded.UnmarshalText(bytes.TrimSpace(*b)) })
	if err != nil {
		return nil, vcerrors.UserError{
			Message:    "Input is not valid hex",
			Details:    err.Error(),
			Suggestion: "Pass bytes as lowercase hex, two digits per byte",
		}
	}
	return protected.New(decoded.RiskyUnwrap()), nil
}
