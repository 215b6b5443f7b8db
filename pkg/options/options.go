// Package options resolves human-readable configuration strings to
// GenerationService enum values.
//
// Keys are matched after lowercasing and trimming surrounding whitespace.
// Unknown keys return an error wrapping ErrInvalidOption.
package options

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dunamismax/pixelgen/pkg/generation"
)

var ErrInvalidOption = errors.New("invalid option")

var samplers = map[string]generation.DiffusionSampler{
	"ddim":              generation.SamplerDDIM,
	"plms":              generation.SamplerDDPM,
	"k_euler":           generation.SamplerKEuler,
	"k_euler_ancestral": generation.SamplerKEulerAncestral,
	"k_heun":            generation.SamplerKHeun,
	"k_dpm_2":           generation.SamplerKDPM2,
	"k_dpm_2_ancestral": generation.SamplerKDPM2Ancestral,
	"k_lms":             generation.SamplerKLMS,
}

var guidancePresets = map[string]generation.GuidancePreset{
	"none":      generation.GuidancePresetNone,
	"simple":    generation.GuidancePresetSimple,
	"fastblue":  generation.GuidancePresetFastBlue,
	"fastgreen": generation.GuidancePresetFastGreen,
}

var colorSpaces = map[string]generation.ColorMatchMode{
	"hsv": generation.ColorMatchHSV,
	"lab": generation.ColorMatchLAB,
	"rgb": generation.ColorMatchRGB,
}

var borderModes2D = map[string]generation.BorderMode{
	"replicate": generation.BorderReplicate,
	"reflect":   generation.BorderReflect,
	"wrap":      generation.BorderWrap,
	"zero":      generation.BorderZero,
}

// The 3D warp cannot wrap, so "wrap" is 2D only.
var borderModes3D = map[string]generation.BorderMode{
	"replicate": generation.BorderReplicate,
	"reflect":   generation.BorderReflect,
	"zero":      generation.BorderZero,
}

func Sampler(s string) (generation.DiffusionSampler, error) {
	return lookup(samplers, "sampler", s)
}

func GuidancePreset(s string) (generation.GuidancePreset, error) {
	return lookup(guidancePresets, "guidance preset", s)
}

func ColorMatch(s string) (generation.ColorMatchMode, error) {
	return lookup(colorSpaces, "color space", s)
}

func BorderMode2D(s string) (generation.BorderMode, error) {
	return lookup(borderModes2D, "2d border mode", s)
}

func BorderMode3D(s string) (generation.BorderMode, error) {
	return lookup(borderModes3D, "3d border mode", s)
}

// Names lists the accepted keys of a domain, for help text and validation
// messages. Unknown domains return nil.
func Names(domain string) []string {
	var keys []string
	switch domain {
	case "sampler":
		keys = mapKeys(samplers)
	case "guidance":
		keys = mapKeys(guidancePresets)
	case "color":
		keys = mapKeys(colorSpaces)
	case "border2d":
		keys = mapKeys(borderModes2D)
	case "border3d":
		keys = mapKeys(borderModes3D)
	}
	return keys
}

func lookup[E any](table map[string]E, domain, s string) (E, error) {
	v, ok := table[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		var zero E
		return zero, fmt.Errorf("%w: %s %q", ErrInvalidOption, domain, s)
	}
	return v, nil
}

func mapKeys[E any](m map[string]E) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
