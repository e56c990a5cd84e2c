package cli

import (
	"fmt"

	"github.com/ppiankov/papercheck/internal/cache"
	"github.com/spf13/cobra"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the lookup cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached metadata and fact-check lookup",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c, err := cache.New(cfg.Cache)
		if err != nil {
			return err
		}
		if c == nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "Cache is disabled")
			return nil
		}
		if err := c.Clear(); err != nil {
			return fmt.Errorf("clear %s cache: %w", cfg.Cache.Backend, err)
		}
		if closer, ok := c.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Cleared %s cache\n", cfg.Cache.Backend)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
