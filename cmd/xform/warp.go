package main

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/dunamismax/pixelgen/internal/config"
	"github.com/dunamismax/pixelgen/internal/logging"
	"github.com/dunamismax/pixelgen/internal/sink"
	"github.com/dunamismax/pixelgen/pkg/filename"
	"github.com/dunamismax/pixelgen/pkg/generation"
	"github.com/dunamismax/pixelgen/pkg/imagecodec"
	"github.com/dunamismax/pixelgen/pkg/xform"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type warpFlags struct {
	inputs []string
	mode   string
	border string

	dx, dy, dz float64
	angle      float64
	zoom       float64
	rx, ry, rz float64
	near, far  float64
	fov        float64

	out    string
	prefix string
	prompt string

	addr     string
	engine   string
	insecure bool
}

func newWarpCmd() *cobra.Command {
	var f warpFlags

	cmd := &cobra.Command{
		Use:   "warp --in <image> [--in <image>]...",
		Short: "Run a single 2D or 3D warp through the transform engine",
		Long: `Warp sends the input images to the transform engine with one warp
operation and writes every returned image, plus the mask when the engine
returns one, into the output directory.

The engine address and API key default to GENERATION_ADDR and
GENERATION_API_KEY.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWarp(cmd, f)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVar(&f.inputs, "in", nil, "input image (repeatable)")
	flags.StringVar(&f.mode, "mode", "2d", "warp mode: 2d or 3d")
	flags.StringVar(&f.border, "border", "reflect", "border mode")
	flags.Float64Var(&f.dx, "dx", 0, "translation along x")
	flags.Float64Var(&f.dy, "dy", 0, "translation along y")
	flags.Float64Var(&f.dz, "dz", 0, "translation along z (3d)")
	flags.Float64Var(&f.angle, "angle", 0, "rotation in degrees (2d)")
	flags.Float64Var(&f.zoom, "zoom", 1, "scale factor (2d)")
	flags.Float64Var(&f.rx, "rx", 0, "rotation about x in degrees (3d)")
	flags.Float64Var(&f.ry, "ry", 0, "rotation about y in degrees (3d)")
	flags.Float64Var(&f.rz, "rz", 0, "rotation about z in degrees (3d)")
	flags.Float64Var(&f.near, "near", 200, "near clipping plane (3d)")
	flags.Float64Var(&f.far, "far", 10000, "far clipping plane (3d)")
	flags.Float64Var(&f.fov, "fov", 40, "field of view in degrees (3d)")
	flags.StringVar(&f.out, "out", "out", "output directory")
	flags.StringVar(&f.prefix, "prefix", "", "file name prefix")
	flags.StringVar(&f.prompt, "prompt", "", "prompt text embedded in file names")
	flags.StringVar(&f.addr, "addr", "", "generation service address")
	flags.StringVar(&f.engine, "engine", "", "transform engine id")
	flags.BoolVar(&f.insecure, "insecure", false, "disable TLS")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func buildWarpOp(f warpFlags) (*generation.TransformOperation, error) {
	switch f.mode {
	case "2d":
		return xform.Warp2D(f.dx, f.dy, f.angle, f.zoom, f.border)
	case "3d":
		return xform.Warp3D(f.dx, f.dy, f.dz, f.rx, f.ry, f.rz, f.near, f.far, f.fov, f.border)
	default:
		return nil, fmt.Errorf("unsupported mode %q, want 2d or 3d", f.mode)
	}
}

func runWarp(cmd *cobra.Command, f warpFlags) error {
	op, err := buildWarpOp(f)
	if err != nil {
		return err
	}

	images := make([]image.Image, 0, len(f.inputs))
	for _, path := range f.inputs {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		img, err := imagecodec.Decode(data)
		if err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		images = append(images, img)
	}

	logger, err := cliLogger(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := imagecodec.Startup(); err != nil {
		return err
	}
	defer imagecodec.Shutdown()

	cfg := config.Load()
	addr := cfg.Generation.Addr
	if f.addr != "" {
		addr = f.addr
	}
	engine := cfg.Generation.EngineID
	if f.engine != "" {
		engine = f.engine
	}

	dialOpts := []generation.Option{generation.WithAPIKey(cfg.Generation.APIKey)}
	if f.insecure || cfg.Generation.Insecure {
		dialOpts = append(dialOpts, generation.WithInsecure())
	}
	client, err := generation.Dial(addr, dialOpts...)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	pipeline := xform.NewPipeline(client, xform.WithEngineID(engine), xform.WithLogger(logger))
	res, err := pipeline.Transform(cmd.Context(), images, []*generation.TransformOperation{op})
	if err != nil {
		return err
	}

	out, err := sink.NewLocal(filepath.Dir(f.out), filepath.Base(f.out))
	if err != nil {
		return err
	}

	ts := time.Now().Unix()
	limit := filename.MaxLength()
	for i, img := range res.Images {
		path, err := out.Write(cmd.Context(), filename.TruncateFit(f.prefix, f.prompt, ".png", ts, i, limit), img)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	if res.Mask != nil {
		path, err := out.Write(cmd.Context(), filename.TruncateFit(f.prefix+"mask_", f.prompt, ".png", ts, 0, limit), res.Mask)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}

	logger.Debug("warp complete",
		zap.String("op", op.Kind()),
		zap.Int("images", len(res.Images)),
		zap.Bool("mask", res.Mask != nil),
	)
	return nil
}

func cliLogger(cmd *cobra.Command) (*zap.Logger, error) {
	level := "info"
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	return logging.New(logging.Config{Level: level, Development: true}, "xform")
}
