package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/memeshelf/internal/paths"
	"github.com/mesh-intelligence/memeshelf/internal/sqlite"
)

func newInitCmd() *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize shelf storage",
		Long: `Create configuration and data directories, write a default config.yaml,
then initialize the local database. With --reset every stored item,
category and setting is erased first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, reset)
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "erase the local catalog")
	return cmd
}

func runInit(cmd *cobra.Command, reset bool) error {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	cfg.DataDir, err = paths.ResolveDataDir(flags.dataDir, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}

	written, err := writeConfigIfMissing(configDir, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	backend := sqlite.NewBackend()
	if err := backend.Attach(cfg); err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	cleared, err := clearStore(backend, reset)
	if err != nil {
		_ = backend.Detach()
		return err
	}
	if err := backend.Detach(); err != nil {
		return fmt.Errorf("finalize storage: %w", err)
	}

	out := cmd.OutOrStdout()
	if written {
		fmt.Fprintf(out, "Wrote %s\n", paths.ConfigFile(configDir))
	}
	if reset {
		fmt.Fprintf(out, "Cleared %d stored key(s)\n", cleared)
	}
	fmt.Fprintf(out, "Shelf initialized in %s\n", cfg.DataDir)
	return nil
}

// clearStore deletes every stored key when reset is set and returns how
// many were removed.
func clearStore(backend *sqlite.Backend, reset bool) (int, error) {
	if !reset {
		return 0, nil
	}
	keys, err := backend.Keys()
	if err != nil {
		return 0, fmt.Errorf("list stored keys: %w", err)
	}
	for _, k := range keys {
		if err := backend.Delete(k); err != nil {
			return 0, fmt.Errorf("clear %s: %w", k, err)
		}
	}
	return len(keys), nil
}
