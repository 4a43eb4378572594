package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/helix"
	"github.com/aretw0/helix/internal/cli"
)

var talkCmd = &cobra.Command{
	Use:   "talk",
	Short: "Open a realtime session and stream its transcript",
	Long: `Exchanges a session credential with the core backend, opens a realtime session
with the tool catalogue attached and prints state changes and assistant transcripts
until Ctrl+C or until the runtime ends the session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		printer := cli.NewPrinter(os.Stdout)
		printer.Banner(helix.Version)
		talk := cli.NewTalk(printer)

		h, err := e.orchestrator(sigCtx, talk.Options()...)
		if err != nil {
			return err
		}
		defer h.Close()

		return talk.Run(sigCtx, h.Controller())
	},
}

func init() {
	rootCmd.AddCommand(talkCmd)
}
