// Package prompts picks the animation prompts active at a frame and the
// weights used to cross-fade between them.
package prompts

import (
	"errors"
	"sort"
)

var ErrNoPrompts = errors.New("no animation prompts")

type Weighted struct {
	Prompt string
	Weight float64
}

// Weights returns the prompt keyed at or before frame with weight 1. With
// interp set and a later keyframe available, it returns that surrounding
// pair instead, weighted by how far frame sits between them. Frames before
// the first keyframe use the first prompt.
func Weights(prompts map[int]string, frame int, interp bool) ([]Weighted, error) {
	if len(prompts) == 0 {
		return nil, ErrNoPrompts
	}

	keys := make([]int, 0, len(prompts))
	for k := range prompts {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	next := sort.Search(len(keys), func(i int) bool { return keys[i] > frame })
	if next == 0 {
		return []Weighted{{Prompt: prompts[keys[0]], Weight: 1}}, nil
	}
	prev := next - 1

	if !interp || next == len(keys) {
		return []Weighted{{Prompt: prompts[keys[prev]], Weight: 1}}, nil
	}

	tween := float64(frame-keys[prev]) / float64(keys[next]-keys[prev])
	return []Weighted{
		{Prompt: prompts[keys[prev]], Weight: 1 - tween},
		{Prompt: prompts[keys[next]], Weight: tween},
	}, nil
}
