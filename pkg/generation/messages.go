// Package generation holds the client side of the GenerationService RPC
// protocol: message types, their protobuf wire encoding, and a streaming
// gRPC client.
package generation

// Request asks one engine to produce artifacts from a list of prompts.
type Request struct {
	EngineID      string
	RequestID     string
	RequestedType ArtifactType
	Prompt        []*Prompt
	Image         *ImageParameters
}

type PromptParameters struct {
	Init   bool
	Weight *float32
}

// Prompt carries either text or an artifact. Setting both is invalid and
// the encoder keeps the artifact.
type Prompt struct {
	Parameters *PromptParameters
	Text       string
	Artifact   *Artifact
}

type Artifact struct {
	ID     uint64
	Type   ArtifactType
	Mime   string
	Binary []byte
	Text   string
	Index  uint32
	Seed   uint32
}

type ImageParameters struct {
	Height    uint64
	Width     uint64
	Seed      []uint32
	Samples   uint64
	Steps     uint64
	Transform *TransformType
}

// TransformType selects either a diffusion sampler or an explicit sequence
// of geometric operations.
type TransformType struct {
	Diffusion *DiffusionSampler
	Sequence  *TransformSequence
}

type TransformSequence struct {
	Operations []*TransformOperation
}

// TransformOperation is a closed union: exactly one of Warp2D and Warp3D is
// set on a valid operation.
type TransformOperation struct {
	Warp2D *TransformWarp2D
	Warp3D *TransformWarp3D
}

type TransformWarp2D struct {
	BorderMode BorderMode
	Rotate     float32
	Scale      float32
	TranslateX float32
	TranslateY float32
}

type TransformWarp3D struct {
	BorderMode BorderMode
	TranslateX float32
	TranslateY float32
	TranslateZ float32
	RotateX    float32
	RotateY    float32
	RotateZ    float32
	NearPlane  float32
	FarPlane   float32
	FOV        float32
}

// Answer is one message of the Generate response stream.
type Answer struct {
	AnswerID  string
	RequestID string
	Received  uint64
	Created   uint64
	Artifacts []*Artifact
}

// Kind reports which variant the operation carries.
func (op *TransformOperation) Kind() string {
	switch {
	case op == nil:
		return ""
	case op.Warp2D != nil:
		return "warp2d"
	case op.Warp3D != nil:
		return "warp3d"
	default:
		return ""
	}
}
