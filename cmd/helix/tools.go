package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/helix/internal/cli"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Print the tool catalogue advertised to the runtime",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		h, err := e.orchestrator(cmd.Context())
		if err != nil {
			return err
		}
		defer h.Close()

		cat, err := h.Catalogue()
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		return cli.ExportTools(cmd.OutOrStdout(), cat.Tools(), format)
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.Flags().String("format", cli.FormatYAML, "Output format: yaml or json")
}
