package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestRequestWireCarriesWarp3DAndMaskPrompt(t *testing.T) {
	req := &Request{
		EngineID: "transform-server-v1",
		Prompt: []*Prompt{
			{Parameters: &PromptParameters{Init: false}, Artifact: &Artifact{Type: ArtifactMask, Binary: []byte{1, 2, 3}}},
		},
		Image: &ImageParameters{
			Seed: []uint32{7, 300000},
			Transform: &TransformType{Sequence: &TransformSequence{Operations: []*TransformOperation{
				{Warp3D: &TransformWarp3D{
					BorderMode: BorderZero,
					TranslateX: 1, TranslateY: 2, TranslateZ: 3,
					RotateX: 4, RotateY: 5, RotateZ: 6,
					NearPlane: 200, FarPlane: 10000, FOV: 40,
				}},
			}}},
		},
	}

	data, err := MarshalRequest(req)
	require.NoError(t, err)

	got, err := UnmarshalRequest(data)
	require.NoError(t, err)

	require.Len(t, got.Prompt, 1)
	require.NotNil(t, got.Prompt[0].Parameters)
	assert.False(t, got.Prompt[0].Parameters.Init)
	assert.Equal(t, ArtifactMask, got.Prompt[0].Artifact.Type)
	assert.Equal(t, []uint32{7, 300000}, got.Image.Seed)

	op := got.Image.Transform.Sequence.Operations[0]
	assert.Equal(t, "warp3d", op.Kind())
	assert.Equal(t, *req.Image.Transform.Sequence.Operations[0].Warp3D, *op.Warp3D)
}

// requestGolden is the encoding of the request built in
// TestRequestGoldenBytes, laid out field by field against generation.proto.
var requestGolden = []byte{
	0x0a, 0x01, 'e', // engine_id = 1
	0x12, 0x01, 'r', // request_id = 2
	0x18, 0x01, // requested_type = 3: ARTIFACT_IMAGE
	0x22, 0x0b, // prompt = 4
	0x0a, 0x02, 0x08, 0x01, // parameters = 1 { init = 1: true }
	0x22, 0x05, // artifact = 4
	0x10, 0x01, // type = 2: ARTIFACT_IMAGE
	0x2a, 0x01, 0xaa, // binary = 5
	0x2a, 0x0f, // image = 5
	0x32, 0x0d, // transform = 6
	0x1a, 0x0b, // sequence = 3
	0x0a, 0x09, // operations = 1
	0x3a, 0x07, // warp2d = 7
	0x08, 0x03, // border_mode = 1: BORDER_ZERO
	0x1d, 0x00, 0x00, 0x80, 0x3f, // scale = 3: 1.0
}

func TestRequestGoldenBytes(t *testing.T) {
	req := &Request{
		EngineID:      "e",
		RequestID:     "r",
		RequestedType: ArtifactImage,
		Prompt: []*Prompt{
			{Parameters: &PromptParameters{Init: true}, Artifact: &Artifact{Type: ArtifactImage, Binary: []byte{0xaa}}},
		},
		Image: &ImageParameters{Transform: &TransformType{Sequence: &TransformSequence{
			Operations: []*TransformOperation{{Warp2D: &TransformWarp2D{BorderMode: BorderZero, Scale: 1}}},
		}}},
	}

	data, err := MarshalRequest(req)
	require.NoError(t, err)
	assert.Equal(t, requestGolden, data)

	got, err := UnmarshalRequest(requestGolden)
	require.NoError(t, err)
	assert.Equal(t, req, got)
}

func TestUnmarshalAnswerSkipsUnknownFields(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 99, protowire.BytesType)
	b = protowire.AppendString(b, "future field")
	b = protowire.AppendTag(b, 98, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, 42)

	known, err := MarshalAnswer(&Answer{
		AnswerID:  "a-1",
		Artifacts: []*Artifact{{Type: ArtifactImage, Binary: []byte("png")}},
	})
	require.NoError(t, err)
	b = append(b, known...)

	got, err := UnmarshalAnswer(b)
	require.NoError(t, err)
	assert.Equal(t, "a-1", got.AnswerID)
	require.Len(t, got.Artifacts, 1)
	assert.Equal(t, []byte("png"), got.Artifacts[0].Binary)
}

func TestUnmarshalAnswerRejectsTruncatedInput(t *testing.T) {
	data, err := MarshalAnswer(&Answer{AnswerID: "a-1"})
	require.NoError(t, err)

	_, err = UnmarshalAnswer(data[:len(data)-1])
	require.Error(t, err)
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "ARTIFACT_MASK", ArtifactMask.String())
	assert.Equal(t, "BORDER_WRAP", BorderWrap.String())
	assert.Equal(t, "SAMPLER_K_DPM_2_ANCESTRAL", SamplerKDPM2Ancestral.String())
	assert.Equal(t, "42", ArtifactType(42).String())
}
