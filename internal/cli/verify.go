package cli

import (
	"fmt"
	"os"

	"github.com/okian/attendance/internal/adapters/export"
	"github.com/spf13/cobra"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Check that a file is a well-formed attendance CSV export",
		Args:  cobra.ExactArgs(1),
		RunE:  runVerify,
	}
}

func runVerify(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	rows, err := export.ParseCSV(string(data))
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows\n", args[0], len(rows))
	return nil
}
