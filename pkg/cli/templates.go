package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/getfleetsim/fleetsim/pkg/store"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List available telemetry templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")

		s, err := store.New(dir, nil, nil)
		if err != nil {
			return err
		}
		s.SeedBuiltins()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tFIELDS\tDESCRIPTION")
		for _, doc := range s.List() {
			fmt.Fprintf(w, "%s\t%d\t%s\n", doc.Name, len(doc.Fields), doc.Description)
		}
		return w.Flush()
	},
}

func init() {
	templatesCmd.Flags().String("dir", "", "Template directory to include")
	rootCmd.AddCommand(templatesCmd)
}
