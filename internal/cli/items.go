package cli

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/memeshelf/internal/ingest"
	"github.com/mesh-intelligence/memeshelf/internal/vision"
	"github.com/mesh-intelligence/memeshelf/pkg/types"
)

func newAddCmd() *cobra.Command {
	var (
		category  string
		noAnalyze bool
		url       string
	)
	cmd := &cobra.Command{
		Use:   "add <file>...",
		Short: "Add image files to the catalog",
		Long: `Add uploads each file to the asset host (when assets.endpoint is set),
asks the vision model for its text and description (when an API key is set),
and stores the result as a new item. With --url the image is already hosted
and only the item is recorded; the optional argument names it.

Example:
  shelf add cat.png dog.gif
  shelf add --category 1718000000000 reaction.jpg
  shelf add --url https://img.example.com/a.gif --text "hello" a.gif`,
		Args: func(cmd *cobra.Command, args []string) error {
			if url != "" {
				return cobra.MaximumNArgs(1)(cmd, args)
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if url != "" {
				return runAddURL(cmd, url, args, category)
			}
			return runAdd(cmd, args, category, noAnalyze)
		},
	}
	cmd.Flags().StringVar(&category, "category", types.DefaultCategoryID, "category id for the new items")
	cmd.Flags().BoolVar(&noAnalyze, "no-analyze", false, "skip text extraction and description")
	cmd.Flags().StringVar(&url, "url", "", "record an already hosted image instead of uploading files")
	cmd.Flags().String("text", "", "extracted text (with --url)")
	cmd.Flags().String("description", "", "description (with --url)")
	return cmd
}

// runAddURL records an item for an image that is hosted elsewhere.
func runAddURL(cmd *cobra.Command, url string, args []string, category string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if !a.reg.Contains(category) {
		return fmt.Errorf("%w: unknown category %q", types.ErrValidation, category)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate id: %w", err)
	}
	name := path.Base(url)
	if len(args) == 1 {
		name = args[0]
	}
	text, _ := cmd.Flags().GetString("text")
	desc, _ := cmd.Flags().GetString("description")
	it := types.Item{
		ID:            id.String(),
		Filename:      name,
		AssetURL:      url,
		CategoryID:    category,
		ExtractedText: text,
		Description:   desc,
		CreatedAt:     time.Now(),
		Format:        strings.TrimPrefix(path.Ext(name), "."),
	}
	if err := a.store.Add(it); err != nil {
		return err
	}
	if flags.jsonMode {
		return printJSON(cmd, []types.Item{it})
	}
	printItemTable(cmd.OutOrStdout(), []types.Item{it}, categoryNames(a.reg.List()))
	return nil
}

func runAdd(cmd *cobra.Command, args []string, category string, noAnalyze bool) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	opts := []ingest.Option{ingest.WithLogger(a.log)}
	host, err := a.assetHost(ctx)
	if err != nil {
		return err
	}
	if host != nil {
		opts = append(opts, ingest.WithAssetHost(host))
	}
	if !noAnalyze {
		g, err := vision.NewGemini(a.cfg.Vision)
		switch {
		case err == nil:
			opts = append(opts, ingest.WithAnalyzer(g))
		case errors.Is(err, vision.ErrAPIKeyMissing):
			a.log.Info("vision api key not set, skipping analysis")
		default:
			return err
		}
	}

	srcs := make([]ingest.Source, 0, len(args))
	for _, p := range args {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		srcs = append(srcs, ingest.Source{Name: filepath.Base(p), Path: p, Data: data})
	}

	errOut := cmd.ErrOrStderr()
	progress := func(index int, stage ingest.Stage, percent int) {
		a.log.Debug("ingest progress",
			zap.String("file", srcs[index].Name), zap.String("stage", string(stage)), zap.Int("percent", percent))
	}
	overall := func(done, total int) {
		if !flags.jsonMode {
			fmt.Fprintf(errOut, "[%d/%d] %s\n", done, total, srcs[done-1].Name)
		}
	}

	results := ingest.New(a.store, a.reg, opts...).IngestAll(ctx, srcs, category, progress, overall)

	var added []types.Item
	var failed error
	for i, r := range results {
		if r.Err != nil {
			failed = errors.Join(failed, fmt.Errorf("%s: %w", srcs[i].Name, r.Err))
			continue
		}
		added = append(added, r.Item)
	}

	if flags.jsonMode {
		if err := printJSON(cmd, added); err != nil {
			return err
		}
	} else {
		printItemTable(cmd.OutOrStdout(), added, categoryNames(a.reg.List()))
	}
	return failed
}

func newListCmd() *cobra.Command {
	var (
		category string
		keyword  string
		deleted  bool
		sortBy   string
		grouped  bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List and search items",
		Long: `List shows active items, or the trash with --trash. --keyword matches
filename, extracted text and description, tolerating typos.

Example:
  shelf list
  shelf list --keyword 猫 --sort size-desc
  shelf list --category 1718000000000 --group
  shelf list --trash --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, types.Filter{Category: category, Keyword: keyword, Deleted: deleted}, sortBy, grouped)
		},
	}
	cmd.Flags().StringVar(&category, "category", types.AllCategories, "category id, or all")
	cmd.Flags().StringVar(&keyword, "keyword", "", "search keyword")
	cmd.Flags().BoolVar(&deleted, "trash", false, "show the trash instead of active items")
	cmd.Flags().StringVar(&sortBy, "sort", "", "sort key (date-desc, date-asc, name-asc, name-desc, size-desc, size-asc); default from settings")
	cmd.Flags().BoolVar(&grouped, "group", false, "group results by category")
	return cmd
}

func runList(cmd *cobra.Command, f types.Filter, sortBy string, grouped bool) error {
	key := types.SortKey(sortBy)
	if sortBy != "" && !key.Valid() {
		return fmt.Errorf("%w: unknown sort key %q", types.ErrValidation, sortBy)
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if key == "" {
		key = a.store.Settings().SortBy
	}
	out := cmd.OutOrStdout()

	if grouped {
		groups := a.store.GroupByCategory(f, key)
		if flags.jsonMode {
			return printJSON(cmd, groups)
		}
		names := categoryNames(a.reg.List())
		for i, g := range groups {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "%s %s (%d)\n", g.Category.Icon, g.Category.Name, len(g.Items))
			printItemTable(out, g.Items, names)
		}
		return nil
	}

	items := a.store.Query(f, key)
	if flags.jsonMode {
		return printJSON(cmd, items)
	}
	printItemTable(out, items, categoryNames(a.reg.List()))
	return nil
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one item",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	it, ok := a.store.Get(args[0])
	if !ok {
		return fmt.Errorf("item %s: %w", args[0], errNotFound)
	}
	if flags.jsonMode {
		return printJSON(cmd, it)
	}

	cat := it.CategoryID
	if c, ok := a.reg.Get(it.CategoryID); ok {
		cat = fmt.Sprintf("%s %s (%s)", c.Icon, c.Name, c.ID)
	}
	state := "active"
	if it.IsDeleted && it.DeletedAt != nil {
		state = "deleted " + it.DeletedAt.Local().Format("2006-01-02 15:04")
	}
	rows := [][]string{
		{"id", it.ID},
		{"filename", it.Filename},
		{"category", cat},
		{"url", it.AssetURL},
		{"size", humanSize(it.ByteSize)},
		{"dimensions", fmt.Sprintf("%dx%d %s", it.Width, it.Height, it.Format)},
		{"uploaded", it.CreatedAt.Local().Format("2006-01-02 15:04")},
		{"state", state},
		{"text", it.ExtractedText},
		{"description", it.Description},
	}
	writeTable(cmd.OutOrStdout(), []string{"FIELD", "VALUE"}, rows)
	return nil
}

func newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit an item's filename, category or text",
		Args:  cobra.ExactArgs(1),
		RunE:  runUpdate,
	}
	cmd.Flags().String("filename", "", "new filename")
	cmd.Flags().String("category", "", "new category id")
	cmd.Flags().String("text", "", "new extracted text")
	cmd.Flags().String("description", "", "new description")
	return cmd
}

func runUpdate(cmd *cobra.Command, args []string) error {
	var patch types.ItemPatch
	for name, dst := range map[string]**string{
		"filename":    &patch.Filename,
		"category":    &patch.CategoryID,
		"text":        &patch.ExtractedText,
		"description": &patch.Description,
	} {
		if cmd.Flags().Changed(name) {
			v, _ := cmd.Flags().GetString(name)
			*dst = &v
		}
	}
	if patch.IsEmpty() {
		return fmt.Errorf("%w: nothing to update", types.ErrValidation)
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if patch.CategoryID != nil && !a.reg.Contains(*patch.CategoryID) {
		return fmt.Errorf("%w: unknown category %q", types.ErrValidation, *patch.CategoryID)
	}
	ok, err := a.store.Update(args[0], patch)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("item %s: %w", args[0], errNotFound)
	}
	it, _ := a.store.Get(args[0])
	if flags.jsonMode {
		return printJSON(cmd, it)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", it.ID)
	return nil
}

// bulkCmd builds rm, restore and purge, which share shape: ids in, count out.
func bulkCmd(use, short, verb string, apply func(a *app, ids []string) (int, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			n, err := apply(a, args)
			if err != nil {
				return err
			}
			if flags.jsonMode {
				return printJSON(cmd, map[string]int{verb: n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d of %d item(s)\n", verb, n, len(args))
			return nil
		},
	}
}

func newRemoveCmd() *cobra.Command {
	cmd := bulkCmd("rm", "Move items to the trash", "Removed", func(a *app, ids []string) (int, error) {
		return a.store.RemoveMany(ids)
	})
	cmd.Aliases = []string{"remove"}
	return cmd
}

func newRestoreCmd() *cobra.Command {
	return bulkCmd("restore", "Restore items from the trash", "Restored", func(a *app, ids []string) (int, error) {
		return a.store.RestoreMany(ids)
	})
}

func newPurgeCmd() *cobra.Command {
	cmd := bulkCmd("purge", "Permanently delete items", "Purged", func(a *app, ids []string) (int, error) {
		return a.store.PurgeMany(ids)
	})
	cmd.Long = "Purge removes items from the catalog for good. Their hosted assets are left in place."
	return cmd
}

func newRecategorizeCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "recategorize [<id>...] --to <category>",
		Short: "Move items to another category",
		Long: `Recategorize moves the listed items, or with --from every item in that
category (trash included), into the --to category.

Example:
  shelf recategorize --from 1718000000000 --to default
  shelf recategorize 0190a1b2 0190a1b3 --to 1718000000000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecategorize(cmd, args, from, to)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "move every item in this category")
	cmd.Flags().StringVar(&to, "to", "", "target category id")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func runRecategorize(cmd *cobra.Command, args []string, from, to string) error {
	if (from == "") == (len(args) == 0) {
		return fmt.Errorf("%w: give either --from or item ids", types.ErrValidation)
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if !a.reg.Contains(to) {
		return fmt.Errorf("%w: unknown category %q", types.ErrValidation, to)
	}
	var n int
	if from != "" {
		n, err = a.store.RecategorizeAll(from, to)
	} else {
		n, err = a.store.RecategorizeSelected(args, to)
	}
	if err != nil {
		return err
	}
	if flags.jsonMode {
		return printJSON(cmd, map[string]int{"moved": n})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Moved %d item(s)\n", n)
	return nil
}
