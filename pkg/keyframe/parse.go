// Package keyframe expands sparse animation keyframes such as
// "0:(1.0), 24:(2.5)" into one value per frame.
package keyframe

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

var ErrFormat = errors.New("keyframe string not correctly formatted")

var segmentPattern = regexp.MustCompile(`(?P<frame>[0-9]+):\s*\((?P<param>[\S\s]*?)\)`)

// Parse reads every "<frame>:(<param>)" segment of s, keeping the parameter
// text as is. A non-empty s without any segment is an error.
func Parse(s string) (map[int]string, error) {
	return ParseWith(s, func(param string) (string, error) {
		return param, nil
	})
}

// ParseFloats is Parse with every parameter read as a number.
func ParseFloats(s string) (map[int]float64, error) {
	return ParseWith(s, func(param string) (float64, error) {
		v, err := cast.ToFloat64E(strings.TrimSpace(param))
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		return v, nil
	})
}

// ParseWith is Parse with each parameter passed through parser. Later
// segments for the same frame replace earlier ones.
func ParseWith[T any](s string, parser func(string) (T, error)) (map[int]T, error) {
	frameIdx := segmentPattern.SubexpIndex("frame")
	paramIdx := segmentPattern.SubexpIndex("param")

	frames := make(map[int]T)
	for _, m := range segmentPattern.FindAllStringSubmatch(s, -1) {
		frame, err := strconv.Atoi(m[frameIdx])
		if err != nil {
			return nil, fmt.Errorf("%w: frame %q: %v", ErrFormat, m[frameIdx], err)
		}
		value, err := parser(m[paramIdx])
		if err != nil {
			return nil, fmt.Errorf("keyframe %d: parse %q: %w", frame, m[paramIdx], err)
		}
		frames[frame] = value
	}

	if len(frames) == 0 && len(s) != 0 {
		return nil, fmt.Errorf("%w: %q", ErrFormat, s)
	}
	return frames, nil
}
