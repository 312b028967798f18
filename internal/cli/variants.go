package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newVariantsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "variants",
		Short: "List configured variants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTABLE\tOUTPUT\tSOURCE")
			for _, name := range cfg.Names() {
				v := cfg.Variants[name]
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, v.TableName, v.OutputPath, v.SourceURL)
			}
			return tw.Flush()
		},
	}
}
