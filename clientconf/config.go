package clientconf

import (
	"fmt"
	"strings"
	"time"

	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/docker/go-units"
)

const (
	// DefaultChunkSize is the threshold above which files are uploaded in chunks.
	DefaultChunkSize int64 = 5 * 1024 * 1024

	// DefaultMaxUploadSize is the largest file the client accepts for upload.
	DefaultMaxUploadSize int64 = 500 * 1024 * 1024

	// DefaultPollInterval is the delay between two task progress queries.
	DefaultPollInterval = 1000 * time.Millisecond
)

// Config is the environment-provided configuration of the ERP client.
type Config struct {
	APIBaseURL  string
	AccessToken Secret
	Username    string

	ChunkSizeBytes     int64
	MaxUploadSizeBytes int64
	// AllowedExtensions is a lowercase extension allowlist (".pdf", ".csv", ...).
	// Empty means any extension is accepted.
	AllowedExtensions []string

	PollInterval time.Duration
}

// NewConfig reads the client configuration from the environment.
// ESSENZA_API_URL and ESSENZA_ACCESS_TOKEN are required, everything else
// falls back to defaults. Size values accept human-readable strings ("8 MB").
func NewConfig(envRepo env.Repository) (Config, error) {
	apiBaseURL := envRepo.Get("ESSENZA_API_URL")
	if apiBaseURL == "" {
		return Config{}, fmt.Errorf("the variable 'ESSENZA_API_URL' is not defined")
	}
	accessToken := envRepo.Get("ESSENZA_ACCESS_TOKEN")
	if accessToken == "" {
		return Config{}, fmt.Errorf("the secret 'ESSENZA_ACCESS_TOKEN' is not defined")
	}

	config := Config{
		APIBaseURL:         strings.TrimSuffix(apiBaseURL, "/"),
		AccessToken:        Secret(accessToken),
		Username:           envRepo.Get("ESSENZA_USERNAME"),
		ChunkSizeBytes:     DefaultChunkSize,
		MaxUploadSizeBytes: DefaultMaxUploadSize,
		PollInterval:       DefaultPollInterval,
	}

	if v := envRepo.Get("ESSENZA_UPLOAD_CHUNK_SIZE"); v != "" {
		size, err := units.RAMInBytes(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ESSENZA_UPLOAD_CHUNK_SIZE value %q: %w", v, err)
		}
		if size <= 0 {
			return Config{}, fmt.Errorf("ESSENZA_UPLOAD_CHUNK_SIZE should be positive, got %s", v)
		}
		config.ChunkSizeBytes = size
	}

	if v := envRepo.Get("ESSENZA_MAX_UPLOAD_SIZE"); v != "" {
		size, err := units.RAMInBytes(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ESSENZA_MAX_UPLOAD_SIZE value %q: %w", v, err)
		}
		if size <= 0 {
			return Config{}, fmt.Errorf("ESSENZA_MAX_UPLOAD_SIZE should be positive, got %s", v)
		}
		config.MaxUploadSizeBytes = size
	}

	if v := envRepo.Get("ESSENZA_ALLOWED_EXTENSIONS"); v != "" {
		for _, ext := range strings.Split(v, ",") {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			config.AllowedExtensions = append(config.AllowedExtensions, ext)
		}
	}

	if v := envRepo.Get("ESSENZA_POLL_INTERVAL"); v != "" {
		interval, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ESSENZA_POLL_INTERVAL value %q: %w", v, err)
		}
		if interval <= 0 {
			return Config{}, fmt.Errorf("ESSENZA_POLL_INTERVAL should be positive, got %s", v)
		}
		config.PollInterval = interval
	}

	return config, nil
}
