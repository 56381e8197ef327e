package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/lane-heatmap-service/internal/adapter/geojson"
	"github.com/couchcryptid/lane-heatmap-service/internal/config"
	"github.com/couchcryptid/lane-heatmap-service/internal/domain"
	"github.com/couchcryptid/lane-heatmap-service/internal/geocoder"
	"github.com/couchcryptid/lane-heatmap-service/internal/ingest"
	"github.com/couchcryptid/lane-heatmap-service/internal/observability"
	"github.com/couchcryptid/lane-heatmap-service/internal/pipeline"
	"github.com/couchcryptid/lane-heatmap-service/internal/zipdata"
)

type processOptions struct {
	format string
	out    string
	zips   string
	extra  string
	online bool
}

func newProcessCmd() *cobra.Command {
	opts := &processOptions{}
	cmd := &cobra.Command{
		Use:   "process FILE",
		Short: "Resolve a lane file and write lanes as JSON, GeoJSON or XLSX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", "json", "output format: json, geojson or xlsx")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output path (default stdout)")
	cmd.Flags().StringVar(&opts.zips, "zips", "", "base ZIP dataset (default $ZIP_BASE_PATH)")
	cmd.Flags().StringVar(&opts.extra, "extra", "", "extra ZIP dataset (default $ZIP_EXTRA_PATH)")
	cmd.Flags().BoolVar(&opts.online, "online", false, "geocode ZIPs missing from the reference data")
	return cmd
}

func runProcess(cmd *cobra.Command, path string, opts *processOptions) error {
	switch opts.format {
	case "json", "geojson", "xlsx":
	default:
		return fmt.Errorf("unknown format %q", opts.format)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.zips != "" {
		cfg.ZipBasePath = opts.zips
	}
	if opts.extra != "" {
		cfg.ZipExtraPath = opts.extra
	}
	if opts.online {
		cfg.OnlineFallback = true
	}

	ctx := cmd.Context()
	logger := commandLogger(cmd)
	metrics := observability.NewMetricsForTesting()

	ref, err := zipdata.NewLoader(cfg.ZipFetchTimeout, logger).Load(ctx, cfg.ZipBasePath, cfg.ZipExtraPath)
	if err != nil {
		return err
	}
	geo, closeCache, err := geocoder.New(ctx, cfg, metrics, logger)
	if err != nil {
		return err
	}
	defer closeCache() //nolint:errcheck // read-mostly cache

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open lane file: %w", err)
	}
	defer f.Close()

	p := pipeline.New(ref, geo, nil, nil, logger, metrics)
	ds, err := p.Process(ctx, filepath.Base(path), ingest.DetectFormat(path, ""), f)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if opts.out != "" {
		out, err := os.Create(opts.out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer out.Close()
		w = out
	}
	if err := writeDataset(w, opts.format, ds); err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%d rows, %d lanes, %d skipped, %d invalid zips\n",
		ds.Stats.Rows, ds.Stats.Lanes, ds.Stats.Skipped, len(ds.InvalidZips))
	return nil
}

func writeDataset(w io.Writer, format string, ds domain.Dataset) error {
	switch format {
	case "xlsx":
		return ingest.WriteLanesXLSX(w, ds)
	case "geojson":
		data, err := geojson.LanesFeatureCollection(ds.Lanes).MarshalJSON()
		if err != nil {
			return fmt.Errorf("encode geojson: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ds)
	}
}
