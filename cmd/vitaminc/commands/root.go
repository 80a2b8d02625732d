package commands

import (
	"github.com/spf13/cobra"

	"github.com/systmms/vitaminc/internal/logging"
	"github.com/systmms/vitaminc/internal/metrics"
)

// NewRootCommand builds the vitaminc command tree around env.
func NewRootCommand(env *Env, version string) *cobra.Command {
	var (
		configFile  string
		noColor     bool
		debug       bool
		metricsAddr string
	)

	rootCmd := &cobra.Command{
		Use:   "vitaminc",
		Short: "Generate, store and use secrets without leaking them",
		Long: `vitaminc keeps key material in protected memory while it generates,
stores, encrypts, hashes and permutes it.

Keys live in a configurable key store (OS keychain, AWS Secrets Manager,
AWS SSM, Azure Key Vault, GCP Secret Manager or Akeyless).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.New(debug, noColor)
			logger.SetOutput(cmd.ErrOrStderr())

			env.Config.Path = configFile
			env.Config.Logger = logger
			if err := env.Config.Load(); err != nil {
				return err
			}

			m := env.definition().Metrics
			if metricsAddr == "" && m.Enabled {
				metricsAddr = m.Addr
			}
			if metricsAddr == "" {
				return nil
			}
			sc := metrics.DefaultServerConfig()
			sc.Addr = metricsAddr
			if m.Path != "" {
				sc.Path = m.Path
			}
			server := metrics.NewServer(sc, logger)
			if err := server.Start(); err != nil {
				return err
			}
			env.metrics = server
			logger.Debug("Serving metrics on %s%s", server.Addr(), sc.Path)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return env.Close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "vitaminc.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	rootCmd.AddCommand(
		NewKeygenCommand(env),
		NewPasswordCommand(env),
		NewDigestCommand(env),
		NewSealCommand(env),
		NewOpenCommand(env),
		NewHMACCommand(env),
		NewPermuteCommand(env),
		NewCompletionCommand(),
	)

	return rootCmd
}
