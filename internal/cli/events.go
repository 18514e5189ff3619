package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print attendance events, newest first",
		Args:  cobra.NoArgs,
		RunE:  runEvents,
	}
	addFilterFlags(cmd)
	cmd.Flags().Int("limit", 0, "Stop after this many events (0 for all)")
	return cmd
}

func runEvents(cmd *cobra.Command, _ []string) error {
	filter, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}
	limit := mustGetInt(cmd, "limit")

	svc, closeFn, err := openLog(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tNAME\tDATE\tTIME")
	n := 0
	for e := range svc.ListEvents(cmd.Context(), filter) {
		if limit > 0 && n == limit {
			break
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.SequenceID, e.DisplayName, e.Date, e.Time)
		n++
	}
	return w.Flush()
}
