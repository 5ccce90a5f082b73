package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropbin/service/internal/config"
)

func TestPublicURL(t *testing.T) {
	tests := []struct {
		base string
		key  string
		want string
	}{
		{"https://b.s3.us-east-1.amazonaws.com", "a.txt", "https://b.s3.us-east-1.amazonaws.com/a.txt"},
		{"https://b.example/", "a.txt", "https://b.example/a.txt"},
		{"https://b.example", "résumé v2.pdf", "https://b.example/r%C3%A9sum%C3%A9%20v2.pdf"},
		{"https://b.example", "550e8400/a.txt", "https://b.example/550e8400%2Fa.txt"},
		{"https://b.example", "a?b#c", "https://b.example/a%3Fb%23c"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, PublicURL(tt.base, tt.key), tt.key)
	}
}

func TestNew(t *testing.T) {
	s, err := New(context.Background(), config.StorageConfig{
		Driver:     config.DriverMemory,
		PublicBase: "http://localhost:8080/objects",
	})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStorage{}, s)
	assert.Equal(t, "http://localhost:8080/objects/a.txt", s.PublicURL("a.txt"))

	_, err = New(context.Background(), config.StorageConfig{Driver: "gcs"})
	assert.Error(t, err)
}

func TestNewS3(t *testing.T) {
	s, err := New(context.Background(), config.StorageConfig{
		Driver:     config.DriverS3,
		Region:     "eu-west-1",
		AccessKey:  "AKIA",
		SecretKey:  "secret",
		Bucket:     "uploads",
		PublicBase: "https://uploads.s3.eu-west-1.amazonaws.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://uploads.s3.eu-west-1.amazonaws.com/a.txt", s.PublicURL("a.txt"))
}
