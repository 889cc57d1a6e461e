package cmd

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/andybalholm/zpack/format"
	"github.com/docker/go-units"
	"github.com/gosuri/uitable"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newBenchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench file",
		Short: "Compare compression formats on a file",
		Long: `Compress and decompress a file with each format and level, and print
the compression ratio and throughput of each.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.bench(cmd, args[0])
		},
	}
	cmd.Flags().StringSlice("formats", format.Names(), "formats to run")
	cmd.Flags().IntSlice("levels", []int{0}, "levels to run (0 is each format's default)")
	cmd.Flags().Int("iterations", 1, "times to run each operation")
	cmd.Flags().String("metrics-file", "", "write Prometheus metrics to this file in text format")
	return cmd
}

type benchResult struct {
	key                  string
	in, out              int
	compress, uncompress time.Duration
}

func (a *app) bench(cmd *cobra.Command, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read input")
	}
	iterations := max(a.v.GetInt("iterations"), 1)

	reg := prometheus.NewRegistry()
	metrics := format.NewMetrics(format.MetricsConfig{Namespace: "zpack"})
	if err := metrics.Register(reg); err != nil {
		return err
	}

	var results []benchResult
	seen := make(map[string]bool)
	for _, name := range a.v.GetStringSlice("formats") {
		for _, level := range a.v.GetIntSlice("levels") {
			f, err := format.New(name, level)
			if err != nil {
				return err
			}
			if seen[f.KeySuffix()] {
				continue
			}
			seen[f.KeySuffix()] = true
			r, err := benchFormat(format.Instrument(f, metrics, a.log), data, iterations)
			if err != nil {
				return errors.Wrap(err, f.KeySuffix())
			}
			a.log.WithField("format", r.key).Debug("Benchmarked")
			results = append(results, r)
		}
	}

	table := uitable.New()
	table.AddRow("FORMAT", "SIZE", "RATIO", "COMPRESS MB/S", "DECOMPRESS MB/S")
	for _, r := range results {
		table.AddRow(r.key, units.BytesSize(float64(r.out)),
			fmt.Sprintf("%.3f", ratio(int64(r.in), int64(r.out))),
			fmt.Sprintf("%.1f", throughput(r.in, r.compress)),
			fmt.Sprintf("%.1f", throughput(r.in, r.uncompress)))
	}
	fmt.Fprintln(cmd.OutOrStdout(), table)

	if file := a.v.GetString("metrics-file"); file != "" {
		if err := prometheus.WriteToTextfile(file, reg); err != nil {
			return errors.Wrap(err, "write metrics")
		}
	}
	return nil
}

func benchFormat(f format.Format, data []byte, iterations int) (benchResult, error) {
	r := benchResult{key: f.KeySuffix(), in: len(data)}
	buf := make([]byte, f.CompressedBufferSize(len(data)))
	start := time.Now()
	for i := 0; i < iterations; i++ {
		n, err := f.Compress(buf, data)
		if err != nil {
			return r, err
		}
		r.out = n
	}
	r.compress = time.Since(start) / time.Duration(iterations)

	out := make([]byte, len(data))
	start = time.Now()
	for i := 0; i < iterations; i++ {
		n, err := f.Uncompress(out, buf[:r.out])
		if err != nil {
			return r, err
		}
		if !bytes.Equal(out[:n], data) {
			return r, errors.New("round trip mismatch")
		}
	}
	r.uncompress = time.Since(start) / time.Duration(iterations)
	return r, nil
}

func throughput(n int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / d.Seconds() / 1e6
}
