package generation

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the GenerationService schema.
const (
	fieldRequestEngineID      protowire.Number = 1
	fieldRequestRequestID     protowire.Number = 2
	fieldRequestRequestedType protowire.Number = 3
	fieldRequestPrompt        protowire.Number = 4
	fieldRequestImage         protowire.Number = 5

	fieldPromptParameters protowire.Number = 1
	fieldPromptText       protowire.Number = 2
	fieldPromptArtifact   protowire.Number = 4

	fieldParamsInit   protowire.Number = 1
	fieldParamsWeight protowire.Number = 2

	fieldArtifactID     protowire.Number = 1
	fieldArtifactType   protowire.Number = 2
	fieldArtifactMime   protowire.Number = 3
	fieldArtifactBinary protowire.Number = 5
	fieldArtifactText   protowire.Number = 6
	fieldArtifactIndex  protowire.Number = 8
	fieldArtifactSeed   protowire.Number = 10

	fieldImageHeight    protowire.Number = 1
	fieldImageWidth     protowire.Number = 2
	fieldImageSeed      protowire.Number = 3
	fieldImageSamples   protowire.Number = 4
	fieldImageSteps     protowire.Number = 5
	fieldImageTransform protowire.Number = 6

	fieldTransformDiffusion protowire.Number = 1
	fieldTransformSequence  protowire.Number = 3

	fieldSequenceOperations protowire.Number = 1

	fieldOperationWarp2D protowire.Number = 7
	fieldOperationWarp3D protowire.Number = 8

	fieldWarp2DBorderMode protowire.Number = 1
	fieldWarp2DRotate     protowire.Number = 2
	fieldWarp2DScale      protowire.Number = 3
	fieldWarp2DTranslateX protowire.Number = 4
	fieldWarp2DTranslateY protowire.Number = 5

	fieldWarp3DBorderMode protowire.Number = 1
	fieldWarp3DTranslateX protowire.Number = 2
	fieldWarp3DTranslateY protowire.Number = 3
	fieldWarp3DTranslateZ protowire.Number = 4
	fieldWarp3DRotateX    protowire.Number = 5
	fieldWarp3DRotateY    protowire.Number = 6
	fieldWarp3DRotateZ    protowire.Number = 7
	fieldWarp3DNearPlane  protowire.Number = 8
	fieldWarp3DFarPlane   protowire.Number = 9
	fieldWarp3DFOV        protowire.Number = 10

	fieldAnswerAnswerID  protowire.Number = 1
	fieldAnswerRequestID protowire.Number = 2
	fieldAnswerReceived  protowire.Number = 3
	fieldAnswerCreated   protowire.Number = 4
	fieldAnswerArtifacts protowire.Number = 7
)

var errNilMessage = errors.New("nil message")

// MarshalRequest encodes a request in protobuf binary form.
func MarshalRequest(r *Request) ([]byte, error) {
	if r == nil {
		return nil, errNilMessage
	}
	return appendRequest(nil, r), nil
}

// UnmarshalRequest decodes a request from protobuf binary form.
func UnmarshalRequest(b []byte) (*Request, error) {
	r := &Request{}
	if err := consumeRequest(b, r); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	return r, nil
}

// MarshalAnswer encodes an answer in protobuf binary form.
func MarshalAnswer(a *Answer) ([]byte, error) {
	if a == nil {
		return nil, errNilMessage
	}
	return appendAnswer(nil, a), nil
}

// UnmarshalAnswer decodes an answer from protobuf binary form.
func UnmarshalAnswer(b []byte) (*Answer, error) {
	a := &Answer{}
	if err := consumeAnswer(b, a); err != nil {
		return nil, fmt.Errorf("decode answer: %w", err)
	}
	return a, nil
}

func appendRequest(b []byte, r *Request) []byte {
	b = appendString(b, fieldRequestEngineID, r.EngineID)
	b = appendString(b, fieldRequestRequestID, r.RequestID)
	b = appendVarint(b, fieldRequestRequestedType, uint64(r.RequestedType))
	for _, p := range r.Prompt {
		if p == nil {
			continue
		}
		b = appendMessage(b, fieldRequestPrompt, appendPrompt(nil, p))
	}
	if r.Image != nil {
		b = appendMessage(b, fieldRequestImage, appendImageParameters(nil, r.Image))
	}
	return b
}

func appendPrompt(b []byte, p *Prompt) []byte {
	if p.Parameters != nil {
		b = appendMessage(b, fieldPromptParameters, appendPromptParameters(nil, p.Parameters))
	}
	switch {
	case p.Artifact != nil:
		b = appendMessage(b, fieldPromptArtifact, appendArtifact(nil, p.Artifact))
	case p.Text != "":
		b = appendString(b, fieldPromptText, p.Text)
	}
	return b
}

func appendPromptParameters(b []byte, p *PromptParameters) []byte {
	// init is optional in the schema, so false is still written.
	b = protowire.AppendTag(b, fieldParamsInit, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeBool(p.Init))
	if p.Weight != nil {
		b = protowire.AppendTag(b, fieldParamsWeight, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(*p.Weight))
	}
	return b
}

func appendArtifact(b []byte, a *Artifact) []byte {
	b = appendVarint(b, fieldArtifactID, a.ID)
	b = appendVarint(b, fieldArtifactType, uint64(a.Type))
	b = appendString(b, fieldArtifactMime, a.Mime)
	if a.Binary != nil {
		b = protowire.AppendTag(b, fieldArtifactBinary, protowire.BytesType)
		b = protowire.AppendBytes(b, a.Binary)
	} else {
		b = appendString(b, fieldArtifactText, a.Text)
	}
	b = appendVarint(b, fieldArtifactIndex, uint64(a.Index))
	b = appendVarint(b, fieldArtifactSeed, uint64(a.Seed))
	return b
}

func appendImageParameters(b []byte, p *ImageParameters) []byte {
	b = appendVarint(b, fieldImageHeight, p.Height)
	b = appendVarint(b, fieldImageWidth, p.Width)
	if len(p.Seed) > 0 {
		var packed []byte
		for _, s := range p.Seed {
			packed = protowire.AppendVarint(packed, uint64(s))
		}
		b = appendMessage(b, fieldImageSeed, packed)
	}
	b = appendVarint(b, fieldImageSamples, p.Samples)
	b = appendVarint(b, fieldImageSteps, p.Steps)
	if p.Transform != nil {
		b = appendMessage(b, fieldImageTransform, appendTransformType(nil, p.Transform))
	}
	return b
}

func appendTransformType(b []byte, t *TransformType) []byte {
	switch {
	case t.Sequence != nil:
		b = appendMessage(b, fieldTransformSequence, appendTransformSequence(nil, t.Sequence))
	case t.Diffusion != nil:
		b = protowire.AppendTag(b, fieldTransformDiffusion, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(*t.Diffusion))
	}
	return b
}

func appendTransformSequence(b []byte, s *TransformSequence) []byte {
	for _, op := range s.Operations {
		if op == nil {
			continue
		}
		b = appendMessage(b, fieldSequenceOperations, appendTransformOperation(nil, op))
	}
	return b
}

func appendTransformOperation(b []byte, op *TransformOperation) []byte {
	switch {
	case op.Warp2D != nil:
		w := op.Warp2D
		var m []byte
		m = appendVarint(m, fieldWarp2DBorderMode, uint64(w.BorderMode))
		m = appendFloat(m, fieldWarp2DRotate, w.Rotate)
		m = appendFloat(m, fieldWarp2DScale, w.Scale)
		m = appendFloat(m, fieldWarp2DTranslateX, w.TranslateX)
		m = appendFloat(m, fieldWarp2DTranslateY, w.TranslateY)
		b = appendMessage(b, fieldOperationWarp2D, m)
	case op.Warp3D != nil:
		w := op.Warp3D
		var m []byte
		m = appendVarint(m, fieldWarp3DBorderMode, uint64(w.BorderMode))
		m = appendFloat(m, fieldWarp3DTranslateX, w.TranslateX)
		m = appendFloat(m, fieldWarp3DTranslateY, w.TranslateY)
		m = appendFloat(m, fieldWarp3DTranslateZ, w.TranslateZ)
		m = appendFloat(m, fieldWarp3DRotateX, w.RotateX)
		m = appendFloat(m, fieldWarp3DRotateY, w.RotateY)
		m = appendFloat(m, fieldWarp3DRotateZ, w.RotateZ)
		m = appendFloat(m, fieldWarp3DNearPlane, w.NearPlane)
		m = appendFloat(m, fieldWarp3DFarPlane, w.FarPlane)
		m = appendFloat(m, fieldWarp3DFOV, w.FOV)
		b = appendMessage(b, fieldOperationWarp3D, m)
	}
	return b
}

func appendAnswer(b []byte, a *Answer) []byte {
	b = appendString(b, fieldAnswerAnswerID, a.AnswerID)
	b = appendString(b, fieldAnswerRequestID, a.RequestID)
	b = appendVarint(b, fieldAnswerReceived, a.Received)
	b = appendVarint(b, fieldAnswerCreated, a.Created)
	for _, art := range a.Artifacts {
		if art == nil {
			continue
		}
		b = appendMessage(b, fieldAnswerArtifacts, appendArtifact(nil, art))
	}
	return b
}

// Scalar fields follow proto3 presence rules: zero values are not written.

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendFloat(b []byte, num protowire.Number, v float32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(v))
}

func appendMessage(b []byte, num protowire.Number, m []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m)
}

// fieldFunc consumes the value of one field and reports how many bytes it
// used. Returning 0 leaves the field to be skipped as unknown.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

func consumeFields(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		n, err := fn(num, typ, b)
		if err != nil {
			return fmt.Errorf("field %d: %w", num, err)
		}
		if n == 0 {
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
	}
	return nil
}

func consumeVarint(typ protowire.Type, b []byte, set func(uint64)) int {
	if typ != protowire.VarintType {
		return 0
	}
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		set(v)
	}
	return n
}

func consumeFloat(typ protowire.Type, b []byte, dst *float32) int {
	if typ != protowire.Fixed32Type {
		return 0
	}
	v, n := protowire.ConsumeFixed32(b)
	if n >= 0 {
		*dst = math.Float32frombits(v)
	}
	return n
}

func consumeBytes(typ protowire.Type, b []byte, set func([]byte) error) (int, error) {
	if typ != protowire.BytesType {
		return 0, nil
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n, nil
	}
	if err := set(v); err != nil {
		return 0, err
	}
	return n, nil
}

func setString(dst *string) func([]byte) error {
	return func(v []byte) error {
		*dst = string(v)
		return nil
	}
}

func consumeRequest(b []byte, r *Request) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldRequestEngineID:
			return consumeBytes(typ, b, setString(&r.EngineID))
		case fieldRequestRequestID:
			return consumeBytes(typ, b, setString(&r.RequestID))
		case fieldRequestRequestedType:
			return consumeVarint(typ, b, func(v uint64) { r.RequestedType = ArtifactType(v) }), nil
		case fieldRequestPrompt:
			return consumeBytes(typ, b, func(v []byte) error {
				p := &Prompt{}
				if err := consumePrompt(v, p); err != nil {
					return err
				}
				r.Prompt = append(r.Prompt, p)
				return nil
			})
		case fieldRequestImage:
			return consumeBytes(typ, b, func(v []byte) error {
				r.Image = &ImageParameters{}
				return consumeImageParameters(v, r.Image)
			})
		}
		return 0, nil
	})
}

func consumePrompt(b []byte, p *Prompt) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldPromptParameters:
			return consumeBytes(typ, b, func(v []byte) error {
				p.Parameters = &PromptParameters{}
				return consumePromptParameters(v, p.Parameters)
			})
		case fieldPromptText:
			return consumeBytes(typ, b, setString(&p.Text))
		case fieldPromptArtifact:
			return consumeBytes(typ, b, func(v []byte) error {
				p.Artifact = &Artifact{}
				return consumeArtifact(v, p.Artifact)
			})
		}
		return 0, nil
	})
}

func consumePromptParameters(b []byte, p *PromptParameters) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldParamsInit:
			return consumeVarint(typ, b, func(v uint64) { p.Init = protowire.DecodeBool(v) }), nil
		case fieldParamsWeight:
			var w float32
			n := consumeFloat(typ, b, &w)
			if n > 0 {
				p.Weight = &w
			}
			return n, nil
		}
		return 0, nil
	})
}

func consumeArtifact(b []byte, a *Artifact) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldArtifactID:
			return consumeVarint(typ, b, func(v uint64) { a.ID = v }), nil
		case fieldArtifactType:
			return consumeVarint(typ, b, func(v uint64) { a.Type = ArtifactType(v) }), nil
		case fieldArtifactMime:
			return consumeBytes(typ, b, setString(&a.Mime))
		case fieldArtifactBinary:
			return consumeBytes(typ, b, func(v []byte) error {
				a.Binary = append([]byte{}, v...)
				return nil
			})
		case fieldArtifactText:
			return consumeBytes(typ, b, setString(&a.Text))
		case fieldArtifactIndex:
			return consumeVarint(typ, b, func(v uint64) { a.Index = uint32(v) }), nil
		case fieldArtifactSeed:
			return consumeVarint(typ, b, func(v uint64) { a.Seed = uint32(v) }), nil
		}
		return 0, nil
	})
}

func consumeImageParameters(b []byte, p *ImageParameters) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldImageHeight:
			return consumeVarint(typ, b, func(v uint64) { p.Height = v }), nil
		case fieldImageWidth:
			return consumeVarint(typ, b, func(v uint64) { p.Width = v }), nil
		case fieldImageSeed:
			if typ == protowire.VarintType {
				return consumeVarint(typ, b, func(v uint64) { p.Seed = append(p.Seed, uint32(v)) }), nil
			}
			return consumeBytes(typ, b, func(v []byte) error {
				for len(v) > 0 {
					s, n := protowire.ConsumeVarint(v)
					if n < 0 {
						return protowire.ParseError(n)
					}
					p.Seed = append(p.Seed, uint32(s))
					v = v[n:]
				}
				return nil
			})
		case fieldImageSamples:
			return consumeVarint(typ, b, func(v uint64) { p.Samples = v }), nil
		case fieldImageSteps:
			return consumeVarint(typ, b, func(v uint64) { p.Steps = v }), nil
		case fieldImageTransform:
			return consumeBytes(typ, b, func(v []byte) error {
				p.Transform = &TransformType{}
				return consumeTransformType(v, p.Transform)
			})
		}
		return 0, nil
	})
}

func consumeTransformType(b []byte, t *TransformType) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldTransformDiffusion:
			return consumeVarint(typ, b, func(v uint64) {
				s := DiffusionSampler(v)
				t.Diffusion = &s
			}), nil
		case fieldTransformSequence:
			return consumeBytes(typ, b, func(v []byte) error {
				t.Sequence = &TransformSequence{}
				return consumeFields(v, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
					if num != fieldSequenceOperations {
						return 0, nil
					}
					return consumeBytes(typ, b, func(v []byte) error {
						op := &TransformOperation{}
						if err := consumeTransformOperation(v, op); err != nil {
							return err
						}
						t.Sequence.Operations = append(t.Sequence.Operations, op)
						return nil
					})
				})
			})
		}
		return 0, nil
	})
}

func consumeTransformOperation(b []byte, op *TransformOperation) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldOperationWarp2D:
			return consumeBytes(typ, b, func(v []byte) error {
				w := &TransformWarp2D{}
				op.Warp2D, op.Warp3D = w, nil
				return consumeFields(v, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
					switch num {
					case fieldWarp2DBorderMode:
						return consumeVarint(typ, b, func(v uint64) { w.BorderMode = BorderMode(v) }), nil
					case fieldWarp2DRotate:
						return consumeFloat(typ, b, &w.Rotate), nil
					case fieldWarp2DScale:
						return consumeFloat(typ, b, &w.Scale), nil
					case fieldWarp2DTranslateX:
						return consumeFloat(typ, b, &w.TranslateX), nil
					case fieldWarp2DTranslateY:
						return consumeFloat(typ, b, &w.TranslateY), nil
					}
					return 0, nil
				})
			})
		case fieldOperationWarp3D:
			return consumeBytes(typ, b, func(v []byte) error {
				w := &TransformWarp3D{}
				op.Warp3D, op.Warp2D = w, nil
				floats := map[protowire.Number]*float32{
					fieldWarp3DTranslateX: &w.TranslateX,
					fieldWarp3DTranslateY: &w.TranslateY,
					fieldWarp3DTranslateZ: &w.TranslateZ,
					fieldWarp3DRotateX:    &w.RotateX,
					fieldWarp3DRotateY:    &w.RotateY,
					fieldWarp3DRotateZ:    &w.RotateZ,
					fieldWarp3DNearPlane:  &w.NearPlane,
					fieldWarp3DFarPlane:   &w.FarPlane,
					fieldWarp3DFOV:        &w.FOV,
				}
				return consumeFields(v, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
					if num == fieldWarp3DBorderMode {
						return consumeVarint(typ, b, func(v uint64) { w.BorderMode = BorderMode(v) }), nil
					}
					if dst, ok := floats[num]; ok {
						return consumeFloat(typ, b, dst), nil
					}
					return 0, nil
				})
			})
		}
		return 0, nil
	})
}

func consumeAnswer(b []byte, a *Answer) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldAnswerAnswerID:
			return consumeBytes(typ, b, setString(&a.AnswerID))
		case fieldAnswerRequestID:
			return consumeBytes(typ, b, setString(&a.RequestID))
		case fieldAnswerReceived:
			return consumeVarint(typ, b, func(v uint64) { a.Received = v }), nil
		case fieldAnswerCreated:
			return consumeVarint(typ, b, func(v uint64) { a.Created = v }), nil
		case fieldAnswerArtifacts:
			return consumeBytes(typ, b, func(v []byte) error {
				art := &Artifact{}
				if err := consumeArtifact(v, art); err != nil {
					return err
				}
				a.Artifacts = append(a.Artifacts, art)
				return nil
			})
		}
		return 0, nil
	})
}
