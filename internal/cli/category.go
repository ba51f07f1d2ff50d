package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/memeshelf/pkg/types"
)

func newCategoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"cat"},
		Short:   "Manage categories",
	}
	cmd.AddCommand(newCategoryListCmd())
	cmd.AddCommand(newCategoryCreateCmd())
	cmd.AddCommand(newCategoryRenameCmd())
	cmd.AddCommand(newCategoryDeleteCmd())
	return cmd
}

func newCategoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories with item counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			cats := a.reg.List()
			if flags.jsonMode {
				return printJSON(cmd, cats)
			}
			counts := a.store.Statistics().ByCategory
			rows := make([][]string, 0, len(cats))
			for _, c := range cats {
				rows = append(rows, []string{c.ID, c.Icon + " " + c.Name, c.Color, strconv.Itoa(counts[c.ID])})
			}
			writeTable(cmd.OutOrStdout(), []string{"ID", "NAME", "COLOR", "ITEMS"}, rows)
			return nil
		},
	}
}

func newCategoryCreateCmd() *cobra.Command {
	var color, icon string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			c, err := a.reg.Create(args[0], color, icon)
			if err != nil {
				return err
			}
			if flags.jsonMode {
				return printJSON(cmd, c)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s (%s)\n", c.Icon, c.Name, c.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&color, "color", "", "hex color (default: picked from the palette)")
	cmd.Flags().StringVar(&icon, "icon", "", "icon (default: "+types.DefaultNewIcon+")")
	return cmd
}

func newCategoryRenameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <id>",
		Short: "Rename or restyle a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var u types.CategoryUpdate
			for name, dst := range map[string]**string{"name": &u.Name, "color": &u.Color, "icon": &u.Icon} {
				if cmd.Flags().Changed(name) {
					v, _ := cmd.Flags().GetString(name)
					*dst = &v
				}
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			ok, err := a.reg.Rename(args[0], u)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("category %s: %w", args[0], errNotFound)
			}
			c, _ := a.reg.Get(args[0])
			if flags.jsonMode {
				return printJSON(cmd, c)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s %s (%s)\n", c.Icon, c.Name, c.ID)
			return nil
		},
	}
	cmd.Flags().String("name", "", "new name")
	cmd.Flags().String("color", "", "new hex color")
	cmd.Flags().String("icon", "", "new icon")
	return cmd
}

func newCategoryDeleteCmd() *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a category, moving its items elsewhere",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			n, err := a.store.DeleteCategory(args[0], target)
			if err != nil {
				return err
			}
			if flags.jsonMode {
				return printJSON(cmd, map[string]int{"moved": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s, moved %d item(s) to %s\n", args[0], n, target)
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "to", types.DefaultCategoryID, "category that receives the items")
	return cmd
}
