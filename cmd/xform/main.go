package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "xform",
		Short:         "Keyframe curves and one-shot image warps against a generation engine",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().BoolP("verbose", "v", false, "log at debug level")

	root.AddCommand(newCurveCmd(), newWarpCmd(), newInspectCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
