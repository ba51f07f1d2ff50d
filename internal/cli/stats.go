package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show catalog statistics",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	st := a.store.Statistics()
	if flags.jsonMode {
		return printJSON(cmd, st)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Items:    %d active, %d in trash\n", st.Total, st.DeletedCount)
	fmt.Fprintf(out, "Size:     %s total, %s average\n", humanSize(st.TotalSize), humanSize(st.AverageSize))
	if st.OldestUpload != nil && st.MostRecentUpload != nil {
		fmt.Fprintf(out, "Uploaded: %s to %s\n",
			st.OldestUpload.Local().Format("2006-01-02"), st.MostRecentUpload.Local().Format("2006-01-02"))
	}
	if usage, err := a.backend.Usage(); err == nil {
		fmt.Fprintf(out, "Storage:  %s\n", humanSize(usage))
	}

	names := categoryNames(a.reg.List())
	ids := make([]string, 0, len(st.ByCategory))
	for id := range st.ByCategory {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return st.ByCategory[ids[i]] > st.ByCategory[ids[j]] })
	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		name := names[id]
		if name == "" {
			name = id
		}
		rows = append(rows, []string{name, strconv.Itoa(st.ByCategory[id])})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out)
		writeTable(out, []string{"CATEGORY", "ITEMS"}, rows)
	}
	return nil
}
