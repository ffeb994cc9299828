package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"motorciclye/partsworker/internal/spider"
)

func newSitesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "List the registered sites",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDOMAIN\tENTRY POINTS\tPAGINATION\tBROWSER")
			for _, site := range spider.All() {
				fmt.Fprintf(w, "%s\t%s\t%d\t%v\t%v\n",
					site.Name, site.AllowedDomain, len(site.EntryPoints), site.Pagination, site.UseBrowser)
			}
			return w.Flush()
		},
	}
}
