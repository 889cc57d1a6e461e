package cmd

import (
	"io"
	"time"

	"github.com/andybalholm/zpack/zstd"
	"github.com/docker/go-units"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newCompressCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compress [file]",
		Short: "Compress a file into a Zstandard frame",
		Long: `Compress a file, or standard input, into a Zstandard frame.

The output goes to file.zst unless --output is given; standard input is
compressed to standard output.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var input string
			if len(args) > 0 {
				input = args[0]
			}
			return a.compress(cmd, input)
		},
	}
	cmd.Flags().StringP("output", "o", "", "output file (- for standard output)")
	cmd.Flags().IntP("level", "l", zstd.DefaultLevel, "compression level")
	cmd.Flags().IntP("workers", "w", 1, "number of blocks compressed in parallel")
	cmd.Flags().String("window", "0", "window size, such as 8MiB (0 picks one from the level)")
	cmd.Flags().String("dict", "", "dictionary file")
	cmd.Flags().Bool("checksum", true, "add a content checksum")
	return cmd
}

func (a *app) compress(cmd *cobra.Command, input string) error {
	window, err := a.size("window")
	if err != nil {
		return err
	}
	opts := &zstd.EncoderOptions{
		Level:       a.v.GetInt("level"),
		WindowSize:  window,
		Checksum:    a.v.GetBool("checksum"),
		Concurrency: a.v.GetInt("workers"),
		Logger:      a.log,
	}
	if path := a.v.GetString("dict"); path != "" {
		dicts, err := loadDicts([]string{path})
		if err != nil {
			return err
		}
		opts.Dict = dicts[0]
	}

	output, err := outputName(input, a.v.GetString("output"), false)
	if err != nil {
		return err
	}
	in, err := openInput(cmd, input)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := createOutput(cmd, output)
	if err != nil {
		return err
	}
	defer out.Close()

	start := time.Now()
	counter := &countingWriter{w: out}
	zw, err := zstd.NewWriter(counter, opts)
	if err != nil {
		return err
	}
	n, err := io.Copy(zw, in)
	if err != nil {
		return errors.Wrap(err, "compress")
	}
	if err := zw.Close(); err != nil {
		return errors.Wrap(err, "compress")
	}
	if err := out.Commit(); err != nil {
		return err
	}

	a.log.WithFields(logrus.Fields{
		"input":    input,
		"output":   output,
		"in":       units.HumanSize(float64(n)),
		"out":      units.HumanSize(float64(counter.n)),
		"ratio":    ratio(n, counter.n),
		"duration": time.Since(start),
	}).Info("Compressed")
	return nil
}

func ratio(in, out int64) float64 {
	if out == 0 {
		return 0
	}
	return float64(in) / float64(out)
}
