package main

import (
	"bytes"
	"image"
	"image/color"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dunamismax/pixelgen/pkg/generation"
	"github.com/dunamismax/pixelgen/pkg/imagecodec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCurvePrintsSeries(t *testing.T) {
	out, err := execute(t, "curve", "0:(0), 4:(2)", "--frames", "5")
	require.NoError(t, err)
	assert.Equal(t, "0\t0\n1\t0.5\n2\t1\n3\t1.5\n4\t2\n", out)
}

func TestCurveTruncatesIntegers(t *testing.T) {
	out, err := execute(t, "curve", "0:(0) 2:(3)", "--frames", "3", "--int")
	require.NoError(t, err)
	assert.Equal(t, "0\t0\n1\t1\n2\t3\n", out)
}

func TestCurveRejectsBadInput(t *testing.T) {
	_, err := execute(t, "curve", "no keyframes here", "--frames", "3")
	assert.Error(t, err)

	_, err = execute(t, "curve", "0:(1)", "--interp", "sinc")
	assert.Error(t, err)
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	data, err := imagecodec.EncodePNG(img)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestInspectReportsDimensions(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "frame.png")
	writePNG(t, good, 6, 4)

	out, err := execute(t, "inspect", good)
	require.NoError(t, err)
	assert.Equal(t, good+"\t6x4\n", out)

	out, err = execute(t, "inspect", good, filepath.Join(dir, "missing.png"))
	require.Error(t, err)
	assert.Contains(t, out, "missing.png")
}

// maskEngine returns every prompt image unchanged followed by one mask.
type maskEngine struct {
	ops []*generation.TransformOperation
}

func (e *maskEngine) Generate(req *generation.Request, stream generation.AnswerSender) error {
	e.ops = req.Image.Transform.Sequence.Operations
	var artifacts []*generation.Artifact
	for _, p := range req.Prompt {
		artifacts = append(artifacts, &generation.Artifact{Type: generation.ArtifactImage, Binary: p.Artifact.Binary})
	}

	mask := image.NewGray(image.Rect(0, 0, 2, 2))
	mask.SetGray(0, 0, color.Gray{Y: 255})
	maskPNG, err := imagecodec.EncodePNG(mask)
	if err != nil {
		return err
	}
	artifacts = append(artifacts, &generation.Artifact{Type: generation.ArtifactMask, Binary: maskPNG})
	return stream.Send(&generation.Answer{Artifacts: artifacts})
}

func TestWarpWritesImagesAndMask(t *testing.T) {
	t.Chdir(t.TempDir())

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := grpc.NewServer(generation.ServerCodec())
	engine := &maskEngine{}
	generation.RegisterGenerationServer(srv, engine)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	writePNG(t, "in.png", 2, 2)

	out, err := execute(t, "warp",
		"--in", "in.png",
		"--mode", "3d",
		"--dz", "5",
		"--border", "zero",
		"--out", "frames",
		"--prefix", "p_",
		"--prompt", "a cat",
		"--addr", lis.Addr().String(),
		"--insecure",
	)
	require.NoError(t, err)

	require.Len(t, engine.ops, 1)
	assert.Equal(t, "warp3d", engine.ops[0].Kind())
	assert.Equal(t, float32(5), engine.ops[0].Warp3D.TranslateZ)

	paths := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, paths, 2)
	assert.True(t, strings.HasPrefix(filepath.Base(paths[0]), "p_a_cat_"))
	assert.True(t, strings.HasPrefix(filepath.Base(paths[1]), "p_mask_a_cat_"))
	for _, p := range paths {
		assert.FileExists(t, p)
	}
}

func TestWarpRejectsBadCamera(t *testing.T) {
	t.Chdir(t.TempDir())
	writePNG(t, "in.png", 2, 2)

	_, err := execute(t, "warp", "--in", "in.png", "--mode", "3d", "--near", "500", "--far", "100")
	assert.Error(t, err)
}
