package animation

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/dunamismax/pixelgen/internal/domain"
	"github.com/dunamismax/pixelgen/pkg/generation"
	"github.com/dunamismax/pixelgen/pkg/imagecodec"
	"github.com/dunamismax/pixelgen/pkg/keyframe"
	"github.com/dunamismax/pixelgen/pkg/xform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSink struct {
	names  []string
	images []image.Image
}

func (s *memSink) Write(_ context.Context, name string, img image.Image) (string, error) {
	s.names = append(s.names, name)
	s.images = append(s.images, img)
	return "mem/" + name, nil
}

// brightenTransformer adds 10 to every color channel and records the ops.
type brightenTransformer struct {
	ops  []*generation.TransformOperation
	mask bool
	err  error
}

func (b *brightenTransformer) Transform(_ context.Context, images []image.Image, ops []*generation.TransformOperation) (xform.Result, error) {
	if b.err != nil {
		return xform.Result{}, b.err
	}
	b.ops = append(b.ops, ops...)

	src := images[0]
	out := image.NewNRGBA(src.Bounds())
	for y := src.Bounds().Min.Y; y < src.Bounds().Max.Y; y++ {
		for x := src.Bounds().Min.X; x < src.Bounds().Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			out.SetNRGBA(x, y, color.NRGBA{R: c.R + 10, G: c.G + 10, B: c.B + 10, A: 255})
		}
	}

	res := xform.Result{Images: []image.Image{out}}
	if b.mask {
		res.Mask = image.NewGray(src.Bounds())
	}
	return res, nil
}

func source() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 100, 100, 100, 255
	}
	return img
}

func job() domain.AnimationJob {
	return domain.AnimationJob{
		ID:            "job-1",
		Prompt:        "a cat",
		Prefix:        "p_",
		MaxFrames:     3,
		Mode:          domain.Mode2D,
		Interpolation: "Linear",
		BorderMode:    "reflect",
		Curves:        domain.Curves{Angle: "0:(0) 2:(10)"},
	}
}

func newTestRenderer(xf Transformer) *Renderer {
	r := NewRenderer(xf, nil, 200)
	r.now = func() time.Time { return time.Unix(100, 0) }
	return r
}

func TestRender2D(t *testing.T) {
	xf := &brightenTransformer{}
	sink := &memSink{}

	out, err := newTestRenderer(xf).Render(context.Background(), job(), source(), sink)
	require.NoError(t, err)

	assert.Equal(t, []string{"p_a cat_100_0.png", "p_a cat_100_1.png", "p_a cat_100_2.png"}, sink.names)
	assert.Equal(t, []string{"mem/p_a cat_100_0.png", "mem/p_a cat_100_1.png", "mem/p_a cat_100_2.png"}, out.Frames)
	assert.Empty(t, out.Masks)

	require.Len(t, xf.ops, 2)
	assert.Equal(t, float32(5), xf.ops[0].Warp2D.Rotate)
	assert.Equal(t, float32(10), xf.ops[1].Warp2D.Rotate)
	assert.Equal(t, float32(1), xf.ops[1].Warp2D.Scale)
	assert.Equal(t, generation.BorderReflect, xf.ops[1].Warp2D.BorderMode)

	last := color.NRGBAModel.Convert(sink.images[2].At(0, 0)).(color.NRGBA)
	assert.Equal(t, uint8(120), last.R)
}

func TestRenderWritesMasks(t *testing.T) {
	sink := &memSink{}
	out, err := newTestRenderer(&brightenTransformer{mask: true}).Render(context.Background(), job(), source(), sink)
	require.NoError(t, err)

	assert.Equal(t, []string{"mem/p_mask_a cat_100_1.png", "mem/p_mask_a cat_100_2.png"}, out.Masks)
	assert.Len(t, out.Frames, 3)
}

func TestRenderBlendsTowardSource(t *testing.T) {
	j := job()
	j.Curves.InitBlend = "0:(1)"
	sink := &memSink{}

	_, err := newTestRenderer(&brightenTransformer{}).Render(context.Background(), j, source(), sink)
	require.NoError(t, err)

	for _, img := range sink.images {
		c := color.NRGBAModel.Convert(img.At(1, 1)).(color.NRGBA)
		assert.Equal(t, uint8(100), c.R)
	}
}

func TestRender3DValidatesCamera(t *testing.T) {
	j := job()
	j.Mode = domain.Mode3D
	j.Curves.FOV = "0:(40) 2:(0)"

	_, err := newTestRenderer(&brightenTransformer{}).Render(context.Background(), j, source(), &memSink{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, xform.ErrInvalidCamera))
	assert.True(t, Permanent(err))
}

func TestRenderUsesScheduledPrompts(t *testing.T) {
	j := job()
	j.Prompt = "0:(a cat) 2:(a dog)"
	sink := &memSink{}

	_, err := newTestRenderer(&brightenTransformer{}).Render(context.Background(), j, source(), sink)
	require.NoError(t, err)
	assert.Equal(t, []string{"p_a cat_100_0.png", "p_a cat_100_1.png", "p_a dog_100_2.png"}, sink.names)
}

func TestRenderPropagatesTransformErrors(t *testing.T) {
	boom := errors.New("unavailable")
	sink := &memSink{}

	out, err := newTestRenderer(&brightenTransformer{err: boom}).Render(context.Background(), job(), source(), sink)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.False(t, Permanent(err))
	assert.Len(t, out.Frames, 1)
}

func TestNewPlanRejectsBadCurves(t *testing.T) {
	j := job()
	j.Curves.Zoom = "zoom in"
	_, err := NewPlan(j)
	assert.True(t, errors.Is(err, keyframe.ErrFormat))
	assert.True(t, Permanent(err))

	j = job()
	j.Curves.Zoom = "50:(2)"
	_, err = NewPlan(j)
	assert.True(t, errors.Is(err, ErrInvalidPlan))

	j = job()
	j.Interpolation = "bezier"
	_, err = NewPlan(j)
	assert.True(t, errors.Is(err, ErrInvalidPlan))
}

func TestPermanentClassifiesMixErrors(t *testing.T) {
	_, err := imagecodec.Mix(image.NewNRGBA(image.Rect(0, 0, 1, 1)), image.NewNRGBA(image.Rect(0, 0, 2, 2)), 0.5)
	assert.True(t, Permanent(err))
	assert.False(t, Permanent(errors.New("io timeout")))
}
