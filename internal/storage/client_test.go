package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "uploads/job-1/source", SourceKey("job-1"))
	assert.Equal(t, "outputs/job-1", OutputPrefix("job-1"))
}

func TestNewClientRequiresBucket(t *testing.T) {
	_, err := NewClient(Config{Endpoint: "localhost:9000"})
	require.Error(t, err)

	c, err := NewClient(Config{Endpoint: "localhost:9000", Access: "a", Secret: "b", Bucket: "frames"})
	require.NoError(t, err)
	assert.Equal(t, "frames", c.Bucket())
}
