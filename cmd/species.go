package cmd

import (
	"github.com/habedi/petcli/client"
	"github.com/spf13/cobra"
)

func speciesCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "species",
		Short:       "List the species the API accepts",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationStandalone: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			table := newTable(cmd.OutOrStdout(), "", "Species")
			for _, s := range client.AllSpecies {
				table.Append([]string{s.Emoji(), string(s)})
			}
			table.Render()
		},
	}
}
