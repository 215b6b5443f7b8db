package main

import (
	"fmt"
	"image"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/dunamismax/pixelgen/pkg/artifact"
	"github.com/dunamismax/pixelgen/pkg/generation"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <image>...",
		Short: "Decode rendered frames and print their dimensions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := cliLogger(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			viewer := artifact.ViewerFunc(func(path string, img image.Image) error {
				b := img.Bounds()
				_, err := fmt.Fprintf(out, "%s\t%dx%d\n", path, b.Dx(), b.Dy())
				return err
			})

			var failed int
			opts := []artifact.Option{
				artifact.WithErrorHandler(func(path string, err error) {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
				}),
			}
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				opts = append(opts, artifact.WithVerbose(logger))
			}

			for range artifact.Open(readArtifacts(args), viewer, opts...) {
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d images could not be read", failed, len(args))
			}
			return nil
		},
	}
}

// readArtifacts yields each file as an image artifact. Unreadable files are
// yielded with an empty payload so the decode failure is reported.
func readArtifacts(paths []string) iter.Seq2[string, *generation.Artifact] {
	return func(yield func(string, *generation.Artifact) bool) {
		for i, p := range paths {
			data, _ := os.ReadFile(p)
			a := &generation.Artifact{
				ID:     uint64(i),
				Type:   generation.ArtifactImage,
				Mime:   "image/" + strings.TrimPrefix(filepath.Ext(p), "."),
				Binary: data,
			}
			if !yield(p, a) {
				return
			}
		}
	}
}
