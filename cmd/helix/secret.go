package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Exchange a session credential with the core backend",
	Long:  `Fetches a short-lived realtime credential. The token itself is only printed with --reveal.`,
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

		cred, err := h.Credentials().Fetch(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if reveal, _ := cmd.Flags().GetBool("reveal"); reveal {
			fmt.Fprintln(out, cred.Value)
		} else {
			fmt.Fprintln(out, cred)
		}
		if !cred.ExpiresAt.IsZero() {
			fmt.Fprintf(out, "expires at %s (in %s)\n", cred.ExpiresAt.Format(time.RFC3339), time.Until(cred.ExpiresAt).Round(time.Second))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(secretCmd)
	secretCmd.Flags().Bool("reveal", false, "Print the raw token")
}
