package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/memeshelf/internal/catalog"
	"github.com/mesh-intelligence/memeshelf/internal/paths"
	"github.com/mesh-intelligence/memeshelf/internal/snapshot"
	"github.com/mesh-intelligence/memeshelf/pkg/types"
)

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [path]",
		Short: "Write the catalog to a JSON document",
		Long: `Export writes every item (trash included), every category and the
auxiliary config to one JSON document. The default file name carries
today's date.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runExport,
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	path := paths.ExportFileName(time.Now())
	if len(args) == 1 {
		path = args[0]
	}
	snap := a.store.Export()
	if err := snapshot.WriteFile(path, snap); err != nil {
		return err
	}
	if flags.jsonMode {
		return printJSON(cmd, map[string]any{"path": path, "items": len(snap.Items), "categories": len(snap.Categories)})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d item(s) and %d categories to %s\n", len(snap.Items), len(snap.Categories), path)
	return nil
}

func newImportCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "import <path>",
		Short: "Load a JSON document into the catalog",
		Long: `Import reads an exported document. Overwrite mode replaces the catalog;
merge mode adds only items and categories whose ids are new.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], types.ImportMode(mode))
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(types.ImportOverwrite), "overwrite or merge")
	return cmd
}

func runImport(cmd *cobra.Command, path string, mode types.ImportMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: unknown import mode %q", types.ErrValidation, mode)
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	res, err := snapshot.ReadFile(path)
	if err != nil {
		return err
	}
	out, err := a.store.Apply(res, catalog.ImportOptions{Mode: mode})
	if err != nil {
		return err
	}
	return reportImport(cmd, a, out)
}

// reportImport prints an import or pull outcome and logs its warnings.
func reportImport(cmd *cobra.Command, a *app, r catalog.ImportResult) error {
	for _, w := range r.Warnings {
		a.log.Warn("import", zap.String("warning", w.String()))
	}
	if flags.jsonMode {
		warnings := make([]string, len(r.Warnings))
		for i, w := range r.Warnings {
			warnings[i] = w.String()
		}
		return printJSON(cmd, map[string]any{
			"mode":       r.Mode,
			"items":      r.Items,
			"skipped":    r.Skipped,
			"categories": r.Categories,
			"warnings":   warnings,
		})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported %d item(s) (%s), %d categories", r.Items, r.Mode, r.Categories)
	if r.Skipped > 0 {
		fmt.Fprintf(out, ", skipped %d existing", r.Skipped)
	}
	fmt.Fprintln(out)
	if len(r.Warnings) > 0 {
		fmt.Fprintf(out, "%d warning(s); see log output\n", len(r.Warnings))
	}
	return nil
}
