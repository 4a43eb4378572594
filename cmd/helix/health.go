package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the core backend's health endpoint",
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

		health, err := h.Backend().Health(cmd.Context())
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(health, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		if !health.OK {
			return fmt.Errorf("backend at %s reports not ok", e.cfg.CoreURL)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
