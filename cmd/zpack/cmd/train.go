package cmd

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/andybalholm/zpack/zstd"
	"github.com/docker/go-units"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newTrainCmd(a *app) *cobra.Command {
	defaults := zstd.DefaultDictOptions()
	cmd := &cobra.Command{
		Use:   "train sample...",
		Short: "Build a dictionary from sample files",
		Long: `Build a Zstandard dictionary from sample files. Directories are
searched recursively; every regular file in them is a sample.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.train(args)
		},
	}
	cmd.Flags().StringP("output", "o", "dictionary", "dictionary file")
	cmd.Flags().String("max-size", units.BytesSize(float64(defaults.MaxSize)), "largest dictionary size")
	cmd.Flags().Uint32("id", 0, "dictionary ID (0 derives one from the content)")
	cmd.Flags().String("segment-size", units.BytesSize(float64(defaults.SegmentSize)), "longest run of sample data copied into the dictionary")
	return cmd
}

func (a *app) train(paths []string) error {
	samples, err := readSamples(paths)
	if err != nil {
		return err
	}
	a.log.WithField("samples", len(samples)).Debug("Read samples")

	maxSize, err := a.size("max-size")
	if err != nil {
		return err
	}
	segmentSize, err := a.size("segment-size")
	if err != nil {
		return err
	}
	dict, err := zstd.BuildDict(samples, &zstd.DictOptions{
		MaxSize:     maxSize,
		ID:          a.v.GetUint32("id"),
		SegmentSize: segmentSize,
		Logger:      a.log,
	})
	if err != nil {
		return err
	}
	output := a.v.GetString("output")
	if err := os.WriteFile(output, dict, 0o644); err != nil {
		return errors.Wrap(err, "write dictionary")
	}

	d, err := zstd.LoadDict(dict)
	if err != nil {
		return err
	}
	a.log.WithFields(logrus.Fields{
		"output": output,
		"size":   units.BytesSize(float64(len(dict))),
		"id":     d.ID(),
	}).Info("Dictionary written")
	return nil
}

// readSamples reads every regular file under paths.
func readSamples(paths []string) ([][]byte, error) {
	var samples [][]byte
	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.Type().IsRegular() {
				return nil
			}
			b, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			samples = append(samples, b)
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, "read samples")
		}
	}
	return samples, nil
}
