package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/memeshelf/pkg/types"
)

// printJSON writes v as indented JSON to the command's stdout.
func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

// writeTable renders rows through a tabwriter and trims trailing blanks.
func writeTable(w io.Writer, header []string, rows [][]string) {
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(header, "\t"))
	rule := make([]string, len(header))
	for i, h := range header {
		rule[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(rule, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	tw.Flush()

	for _, line := range strings.Split(strings.TrimRight(sb.String(), "\n"), "\n") {
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}

// truncate shortens s to max runes, marking the cut with "...".
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// printItemTable prints items in a human-readable table.
func printItemTable(w io.Writer, items []types.Item, names map[string]string) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No items found.")
		return
	}
	table := make([][]string, 0, len(items))
	for _, it := range items {
		cat := names[it.CategoryID]
		if cat == "" {
			cat = it.CategoryID
		}
		table = append(table, []string{
			it.ID,
			truncate(it.Filename, 32),
			cat,
			humanSize(it.ByteSize),
			it.CreatedAt.Local().Format("2006-01-02"),
			truncate(strings.Join(strings.Fields(it.ExtractedText), " "), 30),
		})
	}
	writeTable(w, []string{"ID", "FILENAME", "CATEGORY", "SIZE", "UPLOADED", "TEXT"}, table)
	fmt.Fprintf(w, "Total: %d item(s)\n", len(items))
}

// humanSize formats a byte count with a binary unit suffix.
func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// categoryNames maps category ids to display names.
func categoryNames(cats []types.Category) map[string]string {
	names := make(map[string]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return names
}
