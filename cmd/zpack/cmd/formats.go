package cmd

import (
	"fmt"

	"github.com/andybalholm/zpack/format"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
)

func newFormatsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List the compression formats and their cache key suffixes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := a.v.GetInt("level")
			cl := a.v.GetString("command-line")
			table := uitable.New()
			table.AddRow("NAME", "VERSION", "KEY SUFFIX")
			for _, name := range format.Names() {
				var f format.Format
				if name == "zstd" && cl != "" {
					f = format.ZstdFromCommandLine(cl)
				} else {
					var err error
					if f, err = format.New(name, level); err != nil {
						return err
					}
				}
				table.AddRow(f.Name(), f.Version(), f.KeySuffix())
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), table)
			return err
		},
	}
	cmd.Flags().IntP("level", "l", 0, "level to report (0 is each format's default)")
	cmd.Flags().String("command-line", "", "host command line to read the zstd "+format.LevelOption+" from")
	return cmd
}
