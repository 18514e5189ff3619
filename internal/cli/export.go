package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the attendance log as CSV",
		Long: `Write the attendance log as CSV with the header Name,Date,Time, newest
first, every field quoted.

Example:
  attendancectl export --date 2024-03-01 --out attendance_log.csv`,
		Args: cobra.NoArgs,
		RunE: runExport,
	}
	addFilterFlags(cmd)
	cmd.Flags().String("out", "-", "Output file, - for stdout")
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	filter, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}
	svc, closeFn, err := openLog(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	csv, err := svc.ExportCSV(cmd.Context(), filter)
	if err != nil {
		return err
	}

	out := mustGetString(cmd, "out")
	if out == "-" || out == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), csv)
		return err
	}
	if err := os.WriteFile(out, []byte(csv), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", out)
	return nil
}
