package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/lane-heatmap-service/internal/observability"
)

func commandLogger(cmd *cobra.Command) *slog.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	return observability.NewLoggerTo(cmd.ErrOrStderr(), level, format)
}
