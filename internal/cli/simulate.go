package cli

import (
	"github.com/okian/attendance/internal/simulate"
	"github.com/okian/attendance/pkg/logger"
	"github.com/spf13/cobra"
)

func newSimulateCmd() *cobra.Command {
	def := simulate.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive a running kiosk with synthetic people and frames",
		Long: `Register synthetic identities on a running kiosk, replay noisy frames for
each of them concurrently, then check that every identity was recorded and
never twice on the same day.

Example:
  attendancectl simulate --url http://localhost:9080 --identities 50 --frames 20`,
		Args: cobra.NoArgs,
		RunE: runSimulate,
	}
	cmd.Flags().String("url", def.BaseURL, "Base URL of the kiosk service")
	cmd.Flags().Int("identities", def.Identities, "Synthetic people to register")
	cmd.Flags().Int("frames", def.Frames, "Frames per person")
	cmd.Flags().Int("workers", def.Workers, "Concurrent requests")
	cmd.Flags().Duration("timeout", def.Timeout, "HTTP request timeout")
	cmd.Flags().Int("descriptor-length", def.DescriptorLength, "Descriptor length the kiosk expects")
	cmd.Flags().Float64("noise", def.Noise, "Per-component jitter on every frame")
	cmd.Flags().String("prefix", def.Prefix, "Name prefix of the synthetic people")
	cmd.Flags().Bool("verbose", false, "Log every failed frame")
	return cmd
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfg := simulate.DefaultConfig()
	cfg.BaseURL = mustGetString(cmd, "url")
	cfg.Identities = mustGetInt(cmd, "identities")
	cfg.Frames = mustGetInt(cmd, "frames")
	cfg.Workers = mustGetInt(cmd, "workers")
	cfg.Timeout = mustGetDuration(cmd, "timeout")
	cfg.DescriptorLength = mustGetInt(cmd, "descriptor-length")
	cfg.Noise = mustGetFloat64(cmd, "noise")
	cfg.Prefix = mustGetString(cmd, "prefix")

	log := logger.Nop()
	if mustGetBool(cmd, "verbose") {
		if err := logger.Init(); err != nil {
			return err
		}
		_ = logger.SetLevelString("debug")
		log = logger.Named("simulate")
	}

	report, err := simulate.Run(cmd.Context(), cfg, log)
	if report != nil {
		report.Fprint(cmd.OutOrStdout())
	}
	return err
}
