package cmd

import (
	"sort"

	"github.com/habedi/petcli/config"
	"github.com/habedi/petcli/pkg/clierr"
	"github.com/habedi/petcli/pkg/validation"
	"github.com/spf13/cobra"
)

func langCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lang [code]",
		Short: "Show or set the language of server messages",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(args) == 0 {
				current := a.language(ctx)
				cmd.Printf("Current language: %s (%s)\n", current, config.Languages[current])
				codes := make([]string, 0, len(config.Languages))
				for code := range config.Languages {
					codes = append(codes, code)
				}
				sort.Strings(codes)
				table := newTable(cmd.OutOrStdout(), "Code", "Language")
				for _, code := range codes {
					table.Append([]string{code, config.Languages[code]})
				}
				table.Render()
				return nil
			}

			code := args[0]
			if err := validation.ValidateLanguageCode(code, config.Languages); err != nil {
				return err
			}
			if err := a.settings.Set(ctx, languageSettingKey, code); err != nil {
				return clierr.New(clierr.Internal, "Failed to save the language preference.", err)
			}
			cmd.Printf("Language set to %s (%s).\n", code, config.Languages[code])
			if a.cfg.Language != "" && a.cfg.Language != code {
				cmd.Printf("Note: PETCLI_LANGUAGE=%s takes precedence while it is set.\n", a.cfg.Language)
			}
			return nil
		},
	}
}
