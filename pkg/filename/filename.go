// Package filename builds output file names for generated artifacts.
package filename

import (
	"os"
	"strconv"
	"strings"
)

const (
	EnvMaxLength     = "MAX_FILENAME_SZ"
	DefaultMaxLength = 200
)

// MaxLength returns the filename budget from MAX_FILENAME_SZ, or
// DefaultMaxLength when the variable is unset or not an integer.
func MaxLength() int {
	raw := strings.TrimSpace(os.Getenv(EnvMaxLength))
	if raw == "" {
		return DefaultMaxLength
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return DefaultMaxLength
	}
	return n
}

// TruncateFit returns prefix + prompt + "_<ts>_<idx>" + ext, cutting the
// prompt so that the name stays within max.
//
// The prompt budget is max - len(prefix) - len(suffix) - len(ext) - 1,
// counted in characters. When the fixed parts alone use up the budget the
// prompt is dropped entirely and the result may exceed max.
func TruncateFit(prefix, prompt, ext string, ts int64, idx, max int) string {
	suffix := "_" + strconv.FormatInt(ts, 10) + "_" + strconv.Itoa(idx)

	budget := max
	budget -= runeLen(prefix)
	budget -= runeLen(suffix)
	budget -= runeLen(ext) + 1

	return prefix + truncateRunes(prompt, budget) + suffix + ext
}

func runeLen(s string) int {
	return len([]rune(s))
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
