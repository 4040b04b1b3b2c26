package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/habedi/petcli/config"
	"github.com/habedi/petcli/pkg/clierr"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// annotationStandalone marks commands that need neither the database nor the
// API client.
const annotationStandalone = "standalone"

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return clierr.ExitValidation
	}

	a := newApp(cfg)
	defer a.close()

	rootCmd := createRootCmd(a)
	rootCmd.PersistentFlags().BoolP("help", "h", false, "Show help for a command")
	return run(ctx, rootCmd, a)
}

func run(ctx context.Context, rootCmd *cobra.Command, a *app) int {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return clierr.ExitOK
	}
	log.Error().Err(err).Msg("Command execution failed.")

	cliErr := toCLIError(err)
	// The session-expired notice has already been shown.
	if !(cliErr.Type == clierr.Auth && a.sessionExpired.Load()) {
		rootCmd.PrintErrln("Error:", cliErr.Message)
	}
	return cliErr.ExitCode()
}

func createRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "petcli",
		Short:         "A command-line client for the PetCare API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[annotationStandalone] == "true" {
				return nil
			}
			return a.open(cmd.Context(), cmd.ErrOrStderr())
		},
	}

	rootCmd.AddCommand(
		loginCmd(a),
		registerCmd(a),
		logoutCmd(a),
		whoamiCmd(a),
		animalsCmd(a),
		langCmd(a),
		speciesCmd(),
		versionCmd(),
	)

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{
		Use:    "no-help",
		Hidden: true,
	})

	return rootCmd
}
