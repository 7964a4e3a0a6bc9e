package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/use-agent/scrubber/cache"
)

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Deletes the whole cache directory, raw documents and records alike.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(os.Stderr)
		if err != nil {
			return err
		}
		if err := cache.Clear(cfg.Cache.Dir); err != nil {
			return err
		}
		slog.Info("cache removed", "dir", cfg.Cache.Dir)
		return nil
	},
}
