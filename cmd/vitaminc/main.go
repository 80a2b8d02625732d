package main

import (
	"fmt"
	"os"

	"github.com/awnumar/memguard"

	"github.com/systmms/vitaminc/cmd/vitaminc/commands"
	vcerrors "github.com/systmms/vitaminc/internal/errors"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	memguard.CatchInterrupt()

	err := run()
	memguard.Purge()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", vcerrors.SimplifyError(err))
		os.Exit(1)
	}
}

func run() error {
	env := commands.NewEnv()
	rootCmd := commands.NewRootCommand(
		env,
		fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	)
	err := rootCmd.Execute()
	if closeErr := env.Close(); err == nil {
		err = closeErr
	}
	return err
}
