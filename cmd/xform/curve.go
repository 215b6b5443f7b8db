package main

import (
	"fmt"
	"strconv"

	"github.com/dunamismax/pixelgen/pkg/keyframe"
	"github.com/spf13/cobra"
)

func newCurveCmd() *cobra.Command {
	var (
		frames  int
		interp  string
		integer bool
	)

	cmd := &cobra.Command{
		Use:   `curve "<frame>:(<value>), ..."`,
		Short: "Expand a keyframe string into one value per frame",
		Example: `  xform curve "0:(0), 10:(1.5), 20:(0)" --frames 24 --interp Cubic
  xform curve "0:(200) 30:(10)" --frames 31 --int`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			method, err := keyframe.ParseMethod(interp)
			if err != nil {
				return err
			}
			keys, err := keyframe.ParseFloats(args[0])
			if err != nil {
				return err
			}
			series, err := keyframe.Inbetweens(keys, frames, method, integer)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, v := range series {
				if integer {
					fmt.Fprintf(out, "%d\t%d\n", i, int(v))
					continue
				}
				fmt.Fprintf(out, "%d\t%s\n", i, strconv.FormatFloat(v, 'g', -1, 64))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&frames, "frames", "n", 1, "number of frames to produce")
	cmd.Flags().StringVar(&interp, "interp", string(keyframe.Linear), "interpolation method: Linear, Quadratic or Cubic")
	cmd.Flags().BoolVar(&integer, "int", false, "truncate every value toward zero")
	return cmd
}
