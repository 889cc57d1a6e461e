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

func newDecompressCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decompress [file]",
		Short: "Decompress Zstandard frames",
		Long: `Decompress all the Zstandard frames in a file, or standard input.

The output goes to the file name without its .zst suffix unless --output
is given; standard input is decompressed to standard output.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var input string
			if len(args) > 0 {
				input = args[0]
			}
			return a.decompress(cmd, input)
		},
	}
	cmd.Flags().StringP("output", "o", "", "output file (- for standard output)")
	cmd.Flags().StringSlice("dict", nil, "dictionary files")
	cmd.Flags().String("max-window", units.BytesSize(zstd.DefaultDecoderMaxWindow), "largest window size accepted")
	cmd.Flags().Bool("ignore-checksum", false, "don't verify content checksums")
	return cmd
}

func (a *app) decompress(cmd *cobra.Command, input string) error {
	dicts, err := loadDicts(a.v.GetStringSlice("dict"))
	if err != nil {
		return err
	}
	maxWindow, err := a.size("max-window")
	if err != nil {
		return err
	}
	opts := &zstd.DecoderOptions{
		MaxWindowSize:  uint64(maxWindow),
		IgnoreChecksum: a.v.GetBool("ignore-checksum"),
		Dicts:          dicts,
		Logger:         a.log,
	}

	output, err := outputName(input, a.v.GetString("output"), true)
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
	zr, err := zstd.NewReader(in, opts)
	if err != nil {
		return err
	}
	n, err := io.Copy(out, zr)
	if err != nil {
		return errors.Wrap(err, "decompress")
	}
	if err := out.Commit(); err != nil {
		return err
	}

	a.log.WithFields(logrus.Fields{
		"input":    input,
		"output":   output,
		"out":      units.HumanSize(float64(n)),
		"duration": time.Since(start),
	}).Info("Decompressed")
	return nil
}
