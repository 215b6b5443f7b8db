package generation

import "strconv"

type ArtifactType int32

const (
	ArtifactNone            ArtifactType = 0
	ArtifactImage           ArtifactType = 1
	ArtifactVideo           ArtifactType = 2
	ArtifactText            ArtifactType = 3
	ArtifactTokens          ArtifactType = 4
	ArtifactEmbedding       ArtifactType = 5
	ArtifactClassifications ArtifactType = 6
	ArtifactMask            ArtifactType = 7
	ArtifactLatent          ArtifactType = 8
	ArtifactTensor          ArtifactType = 9
)

var artifactTypeNames = map[ArtifactType]string{
	ArtifactNone:            "ARTIFACT_NONE",
	ArtifactImage:           "ARTIFACT_IMAGE",
	ArtifactVideo:           "ARTIFACT_VIDEO",
	ArtifactText:            "ARTIFACT_TEXT",
	ArtifactTokens:          "ARTIFACT_TOKENS",
	ArtifactEmbedding:       "ARTIFACT_EMBEDDING",
	ArtifactClassifications: "ARTIFACT_CLASSIFICATIONS",
	ArtifactMask:            "ARTIFACT_MASK",
	ArtifactLatent:          "ARTIFACT_LATENT",
	ArtifactTensor:          "ARTIFACT_TENSOR",
}

func (t ArtifactType) String() string {
	return enumName(artifactTypeNames, t)
}

type DiffusionSampler int32

const (
	SamplerDDIM            DiffusionSampler = 0
	SamplerDDPM            DiffusionSampler = 1
	SamplerKEuler          DiffusionSampler = 2
	SamplerKEulerAncestral DiffusionSampler = 3
	SamplerKHeun           DiffusionSampler = 4
	SamplerKDPM2           DiffusionSampler = 5
	SamplerKDPM2Ancestral  DiffusionSampler = 6
	SamplerKLMS            DiffusionSampler = 7
)

var samplerNames = map[DiffusionSampler]string{
	SamplerDDIM:            "SAMPLER_DDIM",
	SamplerDDPM:            "SAMPLER_DDPM",
	SamplerKEuler:          "SAMPLER_K_EULER",
	SamplerKEulerAncestral: "SAMPLER_K_EULER_ANCESTRAL",
	SamplerKHeun:           "SAMPLER_K_HEUN",
	SamplerKDPM2:           "SAMPLER_K_DPM_2",
	SamplerKDPM2Ancestral:  "SAMPLER_K_DPM_2_ANCESTRAL",
	SamplerKLMS:            "SAMPLER_K_LMS",
}

func (s DiffusionSampler) String() string {
	return enumName(samplerNames, s)
}

type GuidancePreset int32

const (
	GuidancePresetNone      GuidancePreset = 0
	GuidancePresetSimple    GuidancePreset = 1
	GuidancePresetFastBlue  GuidancePreset = 2
	GuidancePresetFastGreen GuidancePreset = 3
)

var guidancePresetNames = map[GuidancePreset]string{
	GuidancePresetNone:      "GUIDANCE_PRESET_NONE",
	GuidancePresetSimple:    "GUIDANCE_PRESET_SIMPLE",
	GuidancePresetFastBlue:  "GUIDANCE_PRESET_FAST_BLUE",
	GuidancePresetFastGreen: "GUIDANCE_PRESET_FAST_GREEN",
}

func (p GuidancePreset) String() string {
	return enumName(guidancePresetNames, p)
}

type ColorMatchMode int32

const (
	ColorMatchHSV ColorMatchMode = 0
	ColorMatchLAB ColorMatchMode = 1
	ColorMatchRGB ColorMatchMode = 2
)

var colorMatchNames = map[ColorMatchMode]string{
	ColorMatchHSV: "COLOR_MATCH_HSV",
	ColorMatchLAB: "COLOR_MATCH_LAB",
	ColorMatchRGB: "COLOR_MATCH_RGB",
}

func (m ColorMatchMode) String() string {
	return enumName(colorMatchNames, m)
}

// BorderMode controls how a warp samples pixels outside the source bounds.
type BorderMode int32

const (
	BorderReflect   BorderMode = 0
	BorderReplicate BorderMode = 1
	BorderWrap      BorderMode = 2
	BorderZero      BorderMode = 3
)

var borderModeNames = map[BorderMode]string{
	BorderReflect:   "BORDER_REFLECT",
	BorderReplicate: "BORDER_REPLICATE",
	BorderWrap:      "BORDER_WRAP",
	BorderZero:      "BORDER_ZERO",
}

func (m BorderMode) String() string {
	return enumName(borderModeNames, m)
}

func enumName[E ~int32](names map[E]string, v E) string {
	if name, ok := names[v]; ok {
		return name
	}
	return strconv.Itoa(int(v))
}
