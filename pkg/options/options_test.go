package options

import (
	"errors"
	"strings"
	"testing"

	"github.com/dunamismax/pixelgen/pkg/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupsAreCaseAndWhitespaceInsensitive(t *testing.T) {
	for key, want := range samplers {
		got, err := Sampler("  " + strings.ToUpper(key) + "\t")
		require.NoError(t, err, key)
		assert.Equal(t, want, got, key)
	}
	for key, want := range guidancePresets {
		got, err := GuidancePreset(" " + strings.ToUpper(key))
		require.NoError(t, err, key)
		assert.Equal(t, want, got, key)
	}
	for key, want := range colorSpaces {
		got, err := ColorMatch(strings.ToUpper(key) + " ")
		require.NoError(t, err, key)
		assert.Equal(t, want, got, key)
	}
	for key, want := range borderModes2D {
		got, err := BorderMode2D(strings.ToUpper(key[:1]) + key[1:])
		require.NoError(t, err, key)
		assert.Equal(t, want, got, key)
	}
	for key, want := range borderModes3D {
		got, err := BorderMode3D("\n" + key)
		require.NoError(t, err, key)
		assert.Equal(t, want, got, key)
	}
}

func TestPLMSMapsToDDPM(t *testing.T) {
	got, err := Sampler("plms")
	require.NoError(t, err)
	assert.Equal(t, generation.SamplerDDPM, got)
}

func TestUnknownKeysNameTheInput(t *testing.T) {
	tests := []struct {
		name   string
		lookup func(string) error
	}{
		{"sampler", func(s string) error { _, err := Sampler(s); return err }},
		{"guidance", func(s string) error { _, err := GuidancePreset(s); return err }},
		{"color", func(s string) error { _, err := ColorMatch(s); return err }},
		{"border2d", func(s string) error { _, err := BorderMode2D(s); return err }},
		{"border3d", func(s string) error { _, err := BorderMode3D(s); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.lookup("Bogus-Value")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidOption))
			assert.Contains(t, err.Error(), "Bogus-Value")
		})
	}
}

func TestWrapIsTwoDimensionalOnly(t *testing.T) {
	mode, err := BorderMode2D("wrap")
	require.NoError(t, err)
	assert.Equal(t, generation.BorderWrap, mode)

	_, err = BorderMode3D("wrap")
	require.ErrorIs(t, err, ErrInvalidOption)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"reflect", "replicate", "zero"}, Names("border3d"))
	assert.Len(t, Names("sampler"), len(samplers))
	assert.Nil(t, Names("unknown"))
}
