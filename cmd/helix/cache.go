package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/helix/internal/cli"
	"github.com/aretw0/helix/internal/presentation/tui"
	"github.com/aretw0/helix/pkg/domain"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and refresh cached collections",
}

var cacheRefreshCmd = &cobra.Command{
	Use:       "refresh [collection]",
	Short:     "Reload one collection, or all of them, from the core backend",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: collectionNames(),
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

		p := cli.NewPrinter(cmd.OutOrStdout())
		if len(args) == 0 {
			if err := h.Reconciler().RefreshAll(cmd.Context()); err != nil {
				return err
			}
			p.System("refreshed %d collection(s)", len(domain.Collections))
			return nil
		}
		c := domain.Collection(args[0])
		if err := h.Reconciler().Refresh(cmd.Context(), c); err != nil {
			return err
		}
		p.System("refreshed %s", c)
		return nil
	},
}

var cacheShowCmd = &cobra.Command{
	Use:       "show <collection>",
	Short:     "Print the cached snapshot of a collection",
	Long:      `Prints what the cache holds. With the memory backend the cache is always empty, so use --refresh or a file/redis backend.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: collectionNames(),
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

		c := domain.Collection(args[0])
		if refresh, _ := cmd.Flags().GetBool("refresh"); refresh {
			if err := h.Reconciler().Refresh(cmd.Context(), c); err != nil {
				return err
			}
		}
		snap, err := h.Reconciler().Current(cmd.Context(), c)
		if errors.Is(err, domain.ErrNotCached) {
			return fmt.Errorf("%s is not cached yet; run 'helix cache refresh %s' or pass --refresh", c, c)
		}
		if err != nil {
			return err
		}

		md, err := tui.SnapshotMarkdown(snap)
		if err != nil {
			return err
		}
		return cli.NewPrinter(cmd.OutOrStdout()).Markdown(md)
	},
}

func collectionNames() []string {
	names := make([]string, 0, len(domain.Collections))
	for _, c := range domain.Collections {
		names = append(names, string(c))
	}
	return names
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheRefreshCmd, cacheShowCmd)
	cacheShowCmd.Flags().Bool("refresh", false, "Refresh before printing")
}
