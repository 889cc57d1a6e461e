package cmd

import (
	"io"
	"os"
	"strings"

	"github.com/andybalholm/zpack/zstd"
	"github.com/docker/go-units"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const zstdExt = ".zst"

// countingWriter counts the bytes written through it.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// openInput opens name for reading; "" and "-" mean standard input.
func openInput(cmd *cobra.Command, name string) (io.ReadCloser, error) {
	if name == "" || name == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(name)
	return f, errors.Wrap(err, "open input")
}

// output is a file being written, or standard output. A file that is
// closed before Commit is removed.
type output struct {
	io.Writer
	f    *os.File
	done bool
}

// createOutput creates name for writing; "" and "-" mean standard output.
func createOutput(cmd *cobra.Command, name string) (*output, error) {
	if name == "" || name == "-" {
		return &output{Writer: cmd.OutOrStdout()}, nil
	}
	f, err := os.Create(name)
	if err != nil {
		return nil, errors.Wrap(err, "create output")
	}
	return &output{Writer: f, f: f}, nil
}

// Commit closes the output and keeps it.
func (o *output) Commit() error {
	if o.done || o.f == nil {
		return nil
	}
	o.done = true
	return errors.Wrap(o.f.Close(), "close output")
}

// Close discards the output unless it was committed.
func (o *output) Close() error {
	if o.done || o.f == nil {
		return nil
	}
	o.done = true
	o.f.Close()
	return os.Remove(o.f.Name())
}

// outputName picks the output file for input: explicit wins, standard
// input goes to standard output, and files get ext added (or removed, for
// decompression).
func outputName(input, explicit string, decompress bool) (string, error) {
	switch {
	case explicit != "":
		return explicit, nil
	case input == "" || input == "-":
		return "-", nil
	case !decompress:
		return input + zstdExt, nil
	case strings.HasSuffix(input, zstdExt) && len(input) > len(zstdExt):
		return strings.TrimSuffix(input, zstdExt), nil
	}
	return "", errors.Errorf("%s: unknown suffix, use --output", input)
}

// loadDicts reads dictionary files, zstd format or raw content.
func loadDicts(paths []string) ([]*zstd.Dict, error) {
	var dicts []*zstd.Dict
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, errors.Wrap(err, "read dictionary")
		}
		d, err := zstd.LoadDict(b)
		if err != nil {
			return nil, errors.Wrapf(err, "load dictionary %s", p)
		}
		dicts = append(dicts, d)
	}
	return dicts, nil
}

// size reads a size setting such as "4096", "64k" or "8MiB".
func (a *app) size(key string) (int, error) {
	n, err := units.RAMInBytes(a.v.GetString(key))
	if err != nil {
		return 0, errors.Wrapf(err, "%s", key)
	}
	return int(n), nil
}
