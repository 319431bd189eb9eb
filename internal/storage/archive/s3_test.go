package archive

import (
	"strings"
	"testing"
)

func TestS3Store_KeyPrefixing(t *testing.T) {
	tests := []struct {
		prefix string
		key    string
		want   string
	}{
		{"", "results/2024/a.json", "results/2024/a.json"},
		{"keel", "results/2024/a.json", "keel/results/2024/a.json"},
		{"keel/", "results/2024/a.json", "keel/results/2024/a.json"},
	}

	for _, tt := range tests {
		s := &S3Store{prefix: strings.TrimSuffix(tt.prefix, "/")}
		got := s.objectKey(tt.key)
		if got != tt.want {
			t.Errorf("objectKey(%q) with prefix %q = %q, want %q", tt.key, tt.prefix, got, tt.want)
		}
	}
}

func TestNewS3_PathStyleForCustomEndpoint(t *testing.T) {
	store, err := NewS3(S3Config{
		Bucket:    "reports",
		Endpoint:  "http://localhost:9000",
		Region:    "us-east-1",
		AccessKey: "key",
		SecretKey: "secret",
		Prefix:    "keel/",
	})
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}
	if store.bucket != "reports" {
		t.Errorf("bucket = %q, want reports", store.bucket)
	}
	if store.prefix != "keel" {
		t.Errorf("prefix = %q, want trailing slash trimmed", store.prefix)
	}
}
