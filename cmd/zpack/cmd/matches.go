package cmd

import (
	"io"

	pack "github.com/andybalholm/zpack"
	"github.com/andybalholm/zpack/zstd"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newMatchesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matches [file]",
		Short: "Show the matches a compression level finds",
		Long: `Print a file with every match found at a compression level replaced
by <length,distance>. A literal '<' is printed as "<<".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var input string
			if len(args) > 0 {
				input = args[0]
			}
			in, err := openInput(cmd, input)
			if err != nil {
				return err
			}
			defer in.Close()

			w := &pack.Writer{
				Dest:        cmd.OutOrStdout(),
				MatchFinder: zstd.NewMatchFinder(a.v.GetInt("level")),
				Encoder:     pack.TextEncoder{},
				BlockSize:   a.v.GetInt("block-size"),
			}
			if _, err := io.Copy(w, in); err != nil {
				return errors.Wrap(err, "matches")
			}
			return w.Close()
		},
	}
	cmd.Flags().IntP("level", "l", zstd.DefaultLevel, "compression level")
	cmd.Flags().Int("block-size", 128<<10, "input size of each block")
	return cmd
}
