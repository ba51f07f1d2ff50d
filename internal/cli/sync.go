package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/memeshelf/internal/catalog"
	"github.com/mesh-intelligence/memeshelf/internal/remote"
	"github.com/mesh-intelligence/memeshelf/pkg/types"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push or pull the catalog to a WebDAV or S3 remote",
		Long: `Sync keeps one JSON document on the configured remote (remote.kind,
remote.url, remote.bucket). Push replaces it with the local catalog; pull
applies it locally. The last writer wins.`,
	}
	cmd.AddCommand(newSyncTestCmd())
	cmd.AddCommand(newSyncStatusCmd())
	cmd.AddCommand(newSyncPushCmd())
	cmd.AddCommand(newSyncPullCmd())
	return cmd
}

// withRemote opens the app and the remote client, then runs fn.
func withRemote(cmd *cobra.Command, fn func(a *app, c *remote.Client) error) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	c, err := a.remoteClient()
	if err != nil {
		return err
	}
	return fn(a, c)
}

func syncProgress(a *app) remote.Progress {
	return func(stage remote.Stage, percent int) {
		a.log.Debug("sync progress", zap.String("stage", string(stage)), zap.Int("percent", percent))
	}
}

func newSyncTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check that the remote answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRemote(cmd, func(a *app, c *remote.Client) error {
				ok := c.TestConnection(cmd.Context())
				if flags.jsonMode {
					return printJSON(cmd, map[string]bool{"ok": ok})
				}
				if !ok {
					return fmt.Errorf("%w: remote %s did not answer", types.ErrTransport, a.cfg.Remote.URL)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Connected to %s\n", a.cfg.Remote.URL)
				return nil
			})
		},
	}
}

func newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether the remote document exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRemote(cmd, func(a *app, c *remote.Client) error {
				exists := c.Exists(cmd.Context())
				if flags.jsonMode {
					return printJSON(cmd, map[string]any{"resource": c.Resource(), "exists": exists, "localItems": a.store.Len()})
				}
				state := "missing"
				if exists {
					state = "present"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s; %d local item(s)\n", c.Resource(), state, a.store.Len())
				return nil
			})
		},
	}
}

func newSyncPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Replace the remote document with the local catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRemote(cmd, func(a *app, c *remote.Client) error {
				snap := a.store.Export()
				if err := c.Push(cmd.Context(), snap, syncProgress(a)); err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd, map[string]any{"resource": c.Resource(), "items": len(snap.Items)})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pushed %d item(s) to %s\n", len(snap.Items), c.Resource())
				return nil
			})
		},
	}
}

func newSyncPullCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Apply the remote document to the local catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := types.ImportMode(mode)
			if !m.Valid() {
				return fmt.Errorf("%w: unknown import mode %q", types.ErrValidation, mode)
			}
			return withRemote(cmd, func(a *app, c *remote.Client) error {
				res, err := c.Pull(cmd.Context(), syncProgress(a))
				if err != nil {
					return err
				}
				out, err := a.store.Apply(res, catalog.ImportOptions{Mode: m})
				if err != nil {
					return err
				}
				return reportImport(cmd, a, out)
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(types.ImportOverwrite), "overwrite or merge")
	return cmd
}
