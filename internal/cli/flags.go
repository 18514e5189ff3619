package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/attendance/internal/domain/model"
	"github.com/spf13/cobra"
)

// mustGetString gets a string flag value or panics if the flag doesn't exist.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetInt gets an int flag value or panics if the flag doesn't exist.
func mustGetInt(cmd *cobra.Command, name string) int {
	val, err := cmd.Flags().GetInt(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetBool gets a bool flag value or panics if the flag doesn't exist.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetFloat64 gets a float64 flag value or panics if the flag doesn't exist.
func mustGetFloat64(cmd *cobra.Command, name string) float64 {
	val, err := cmd.Flags().GetFloat64(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetDuration gets a duration flag value or panics if the flag doesn't exist.
func mustGetDuration(cmd *cobra.Command, name string) time.Duration {
	val, err := cmd.Flags().GetDuration(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// addFilterFlags registers --name and --date.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", "", "Only events whose name starts with this (case-insensitive)")
	cmd.Flags().String("date", "", "Only events on this day (YYYY-MM-DD)")
}

func filterFromFlags(cmd *cobra.Command) (model.EventFilter, error) {
	f := model.EventFilter{
		NamePrefix: strings.TrimSpace(mustGetString(cmd, "name")),
		Date:       strings.TrimSpace(mustGetString(cmd, "date")),
	}
	if f.Date != "" {
		if _, err := time.Parse(model.DateLayout, f.Date); err != nil {
			return f, fmt.Errorf("invalid --date %q: must be YYYY-MM-DD", f.Date)
		}
	}
	return f, nil
}
