package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/memeshelf/pkg/types"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change persisted settings",
		Long: `Settings shows the stored sort and view preferences. Use --sort or --view
to change them, and --aux-file to replace the auxiliary config that travels
with exports and sync.`,
		Args: cobra.NoArgs,
		RunE: runSettings,
	}
	cmd.Flags().String("sort", "", "default sort key")
	cmd.Flags().String("view", "", "view mode (grid, list, compact)")
	cmd.Flags().String("aux-file", "", "JSON object file for the auxiliary config; empty string clears it")
	return cmd
}

func runSettings(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	st := a.store.Settings()
	changed := false
	if cmd.Flags().Changed("sort") {
		v, _ := cmd.Flags().GetString("sort")
		st.SortBy = types.SortKey(v)
		changed = true
	}
	if cmd.Flags().Changed("view") {
		v, _ := cmd.Flags().GetString("view")
		st.ViewMode = types.ViewMode(v)
		changed = true
	}
	if changed {
		if err := a.store.SetSettings(st); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("aux-file") {
		path, _ := cmd.Flags().GetString("aux-file")
		var raw json.RawMessage
		if path != "" {
			if raw, err = os.ReadFile(path); err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
		}
		if err := a.store.SetAuxiliaryConfig(raw); err != nil {
			return err
		}
	}

	aux := a.store.AuxiliaryConfig()
	if flags.jsonMode {
		return printJSON(cmd, struct {
			types.Settings
			Aux json.RawMessage `json:"aux,omitempty"`
		}{st, aux})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "sort: %s\nview: %s\n", st.SortBy, st.ViewMode)
	if len(aux) > 0 {
		fmt.Fprintf(out, "aux:  %s\n", aux)
	}
	return nil
}
