package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/lane-heatmap-service/internal/adapter/zippopotam"
	"github.com/couchcryptid/lane-heatmap-service/internal/domain"
	"github.com/couchcryptid/lane-heatmap-service/internal/ingest"
	"github.com/couchcryptid/lane-heatmap-service/internal/observability"
)

type genExtraOptions struct {
	out     string
	baseURL string
	delay   time.Duration
	timeout time.Duration
}

func newGenExtraCmd() *cobra.Command {
	opts := &genExtraOptions{}
	cmd := &cobra.Command{
		Use:   "gen-extra [CSV]",
		Short: "Geocode every ZIP in a lane CSV into an extra reference dataset",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "raw/sample.csv"
			if len(args) == 1 {
				path = args[0]
			}
			return runGenExtra(cmd, path, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.out, "out", "o", "assets/us-zips-extra.json", "output path")
	cmd.Flags().StringVar(&opts.baseURL, "url", zippopotam.DefaultBaseURL, "Zippopotam API base URL")
	cmd.Flags().DurationVar(&opts.delay, "delay", 120*time.Millisecond, "pause between lookups")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "per-lookup timeout")
	return cmd
}

func runGenExtra(cmd *cobra.Command, path string, opts *genExtraOptions) error {
	ctx := cmd.Context()
	logger := commandLogger(cmd)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	rows, err := ingest.ReadCSV(f, logger)
	f.Close()
	if err != nil {
		return err
	}

	zips := uniqueZips(rows)
	fmt.Fprintf(cmd.ErrOrStderr(), "Found %d unique ZIPs in %s\n", len(zips), path)

	client := zippopotam.NewClient(opts.baseURL, opts.timeout, observability.NewMetricsForTesting(), logger)
	out := make(map[string]domain.ZipData, len(zips))
	for i, z := range zips {
		if i > 0 && !sleepWithContext(ctx, opts.delay) {
			return ctx.Err()
		}
		data, found, err := client.GeocodeZip(ctx, z)
		if err != nil || !found {
			logger.Warn("failed to resolve zip", "zip", z, "error", err)
			continue
		}
		out[z] = data
	}

	if err := os.MkdirAll(filepath.Dir(opts.out), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode extra dataset: %w", err)
	}
	if err := os.WriteFile(opts.out, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write extra dataset: %w", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d ZIPs to %s\n", len(out), opts.out)
	return nil
}

// uniqueZips collects normalized origin and destination ZIPs in first-seen order.
func uniqueZips(rows []domain.Row) []string {
	seen := make(map[string]struct{})
	var zips []string
	add := func(raw string) {
		z, ok := domain.SanitizeZip(raw)
		if !ok {
			return
		}
		if _, dup := seen[z]; dup {
			return
		}
		seen[z] = struct{}{}
		zips = append(zips, z)
	}
	for _, row := range rows {
		fields := domain.ExtractFields(row)
		add(fields.Origin)
		add(fields.Destination)
	}
	return zips
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
