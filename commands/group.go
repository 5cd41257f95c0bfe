package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/cppla/yatube/services"
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage post groups",
}

var groupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a group",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := boot()
		if err != nil {
			return err
		}
		return createGroup(cmd, db)
	},
}

var groupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := boot()
		if err != nil {
			return err
		}
		return listGroups(cmd, db)
	},
}

func init() {
	f := groupCreateCmd.Flags()
	f.String("title", "", "group title")
	f.String("slug", "", "URL slug, letters, digits, '-' and '_'")
	f.String("description", "", "group description, basic HTML allowed")
	_ = groupCreateCmd.MarkFlagRequired("title")
	_ = groupCreateCmd.MarkFlagRequired("slug")
	groupCmd.AddCommand(groupCreateCmd, groupListCmd)
}

func createGroup(cmd *cobra.Command, db *gorm.DB) error {
	title, _ := cmd.Flags().GetString("title")
	slug, _ := cmd.Flags().GetString("slug")
	description, _ := cmd.Flags().GetString("description")

	g, err := services.NewPostService(db).CreateGroup(cmd.Context(), title, slug, description)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created group %d /group/%s/\n", g.ID, g.Slug)
	return nil
}

func listGroups(cmd *cobra.Command, db *gorm.DB) error {
	groups, err := services.NewPostService(db).Groups(cmd.Context())
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSLUG\tTITLE")
	for _, g := range groups {
		fmt.Fprintf(w, "%d\t%s\t%s\n", g.ID, g.Slug, g.Title)
	}
	return w.Flush()
}
