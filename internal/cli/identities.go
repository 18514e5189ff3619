package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newIdentitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "identities",
		Short: "List registered identities",
		Args:  cobra.NoArgs,
		RunE:  runIdentities,
	}
}

func runIdentities(cmd *cobra.Command, _ []string) error {
	svc, closeFn, err := openLog(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCAPTURES\tREGISTERED")
	for _, id := range svc.ListIdentities(cmd.Context()) {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", id.ID, id.DisplayName, len(id.Embeddings), id.RegisteredAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
