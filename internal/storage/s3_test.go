package storage

import (
	"testing"

	"github.com/timmy/citelens/internal/config"
)

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"https://abc.r2.cloudflarestorage.com/bucket", "abc.r2.cloudflarestorage.com"},
		{"http://localhost:9000", "localhost:9000"},
		{"s3.amazonaws.com", "s3.amazonaws.com"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeEndpoint(tt.in); got != tt.expected {
			t.Errorf("normalizeEndpoint(%q): expected %q, got %q", tt.in, tt.expected, got)
		}
	}
}

func TestDetectStorageType(t *testing.T) {
	tests := []struct {
		endpoint string
		expected StorageType
	}{
		{"https://abc.r2.cloudflarestorage.com", StorageTypeR2},
		{"https://s3.us-east-1.amazonaws.com", StorageTypeS3},
		{"http://localhost:9000", StorageTypeS3Compatible},
	}
	for _, tt := range tests {
		if got := detectStorageType(tt.endpoint); got != tt.expected {
			t.Errorf("detectStorageType(%q): expected %q, got %q", tt.endpoint, tt.expected, got)
		}
	}
}

func TestGetURL(t *testing.T) {
	tests := []struct {
		name     string
		storage  S3Storage
		expected string
	}{
		{
			name:     "public url with prefix",
			storage:  S3Storage{bucket: "b", publicURL: "https://cdn.example.com", prefix: "reports"},
			expected: "https://cdn.example.com/reports/r.json",
		},
		{
			name:     "path style endpoint",
			storage:  S3Storage{bucket: "b", endpoint: "localhost:9000"},
			expected: "http://localhost:9000/b/r.json",
		},
		{
			name:     "aws default endpoint",
			storage:  S3Storage{bucket: "b"},
			expected: "s3://b/r.json",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.storage.GetURL("r.json"); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestNewStorage_RequiresBucket(t *testing.T) {
	if _, err := NewStorage(&config.StorageConfig{Endpoint: "http://localhost:9000"}); err == nil {
		t.Errorf("expected an error for a missing bucket")
	}
}
