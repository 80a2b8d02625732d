package commands

import (
	"github.com/spf13/cobra"

	"github.com/systmms/vitaminc/internal/keystore"
	"github.com/systmms/vitaminc/pkg/password"
	"github.com/systmms/vitaminc/pkg/protected"
)

func NewPasswordCommand(env *Env) *cobra.Command {
	var (
		length  int
		charset string
		store   string
	)

	cmd := &cobra.Command{
		Use:   "password",
		Short: "Generate a random password",
		Long: `Generate a random password drawn uniformly from a character set.

Length and character set default to the password section of the config file.

Examples:
  # Print a password using the configured defaults
  vitaminc password

  # 20 alphanumeric characters, stored under db-password
  vitaminc password --length 20 --charset alphanumeric --store db-password`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults := env.definition().Password
			if !cmd.Flags().Changed("length") {
				length = defaults.Length
			}
			if !cmd.Flags().Changed("charset") {
				charset = defaults.Charset
			}
			cs, err := password.ParseCharset(charset)
			if err != nil {
				return err
			}

			rng, err := env.NewRand()
			if err != nil {
				return err
			}
			defer func() { _ = rng.Close() }()

			pw, err := password.GenerateString(rng, length, cs)
			if err != nil {
				return err
			}
			exp := protected.NewExportable(pw)

			if store == "" {
				return printText(cmd, exp)
			}

			ctx := cmd.Context()
			s, err := env.OpenStore(ctx)
			if err != nil {
				_ = exp.Close()
				return err
			}
			if err := keystore.Save(ctx, s, store, exp); err != nil {
				return err
			}
			env.Config.Logger.Info("Stored %d-character password %q in %s", length, store, s.Name())
			return nil
		},
	}

	cmd.Flags().IntVar(&length, "length", 32, "Password length")
	cmd.Flags().StringVar(&charset, "charset", "standard", "Character set: standard, alphanumeric or alpha")
	cmd.Flags().StringVar(&store, "store", "", "Store the password under this name instead of printing it")

	return cmd
}
