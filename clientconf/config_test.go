package clientconf

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnvRepo struct {
	envVars map[string]string
}

func (repo fakeEnvRepo) Get(key string) string {
	return repo.envVars[key]
}

func (repo fakeEnvRepo) Set(key, value string) error {
	repo.envVars[key] = value
	return nil
}

func (repo fakeEnvRepo) Unset(key string) error {
	repo.envVars[key] = ""
	return nil
}

func (repo fakeEnvRepo) List() []string {
	envs := []string{}
	for k, v := range repo.envVars {
		envs = append(envs, fmt.Sprintf("%s=%s", k, v))
	}
	return envs
}

func TestNewConfig_defaults(t *testing.T) {
	envRepo := fakeEnvRepo{envVars: map[string]string{
		"ESSENZA_API_URL":      "https://erp.example.com/api/",
		"ESSENZA_ACCESS_TOKEN": "secret-token",
		"ESSENZA_USERNAME":     "erika.m",
	}}

	config, err := NewConfig(envRepo)

	require.NoError(t, err)
	// trailing slash is stripped so endpoint paths can be appended safely
	assert.Equal(t, "https://erp.example.com/api", config.APIBaseURL)
	assert.Equal(t, Secret("secret-token"), config.AccessToken)
	assert.Equal(t, "erika.m", config.Username)
	assert.Equal(t, DefaultChunkSize, config.ChunkSizeBytes)
	assert.Equal(t, DefaultMaxUploadSize, config.MaxUploadSizeBytes)
	assert.Equal(t, DefaultPollInterval, config.PollInterval)
	assert.Empty(t, config.AllowedExtensions)
}

func TestNewConfig_overrides(t *testing.T) {
	envRepo := fakeEnvRepo{envVars: map[string]string{
		"ESSENZA_API_URL":            "https://erp.example.com/api",
		"ESSENZA_ACCESS_TOKEN":       "secret-token",
		"ESSENZA_UPLOAD_CHUNK_SIZE":  "8 MB",
		"ESSENZA_MAX_UPLOAD_SIZE":    "1 GB",
		"ESSENZA_ALLOWED_EXTENSIONS": "PDF, .csv,json",
		"ESSENZA_POLL_INTERVAL":      "250ms",
	}}

	config, err := NewConfig(envRepo)

	require.NoError(t, err)
	assert.Equal(t, int64(8*1024*1024), config.ChunkSizeBytes)
	assert.Equal(t, int64(1024*1024*1024), config.MaxUploadSizeBytes)
	assert.Equal(t, []string{".pdf", ".csv", ".json"}, config.AllowedExtensions)
	assert.Equal(t, 250*time.Millisecond, config.PollInterval)
}

func TestNewConfig_errors(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
	}{
		{
			name:    "missing API URL",
			envVars: map[string]string{"ESSENZA_ACCESS_TOKEN": "secret-token"},
		},
		{
			name:    "missing access token",
			envVars: map[string]string{"ESSENZA_API_URL": "https://erp.example.com/api"},
		},
		{
			name: "invalid chunk size",
			envVars: map[string]string{
				"ESSENZA_API_URL":           "https://erp.example.com/api",
				"ESSENZA_ACCESS_TOKEN":      "secret-token",
				"ESSENZA_UPLOAD_CHUNK_SIZE": "a few megabytes",
			},
		},
		{
			name: "zero chunk size",
			envVars: map[string]string{
				"ESSENZA_API_URL":           "https://erp.example.com/api",
				"ESSENZA_ACCESS_TOKEN":      "secret-token",
				"ESSENZA_UPLOAD_CHUNK_SIZE": "0",
			},
		},
		{
			name: "invalid poll interval",
			envVars: map[string]string{
				"ESSENZA_API_URL":       "https://erp.example.com/api",
				"ESSENZA_ACCESS_TOKEN":  "secret-token",
				"ESSENZA_POLL_INTERVAL": "fast",
			},
		},
		{
			name: "negative poll interval",
			envVars: map[string]string{
				"ESSENZA_API_URL":       "https://erp.example.com/api",
				"ESSENZA_ACCESS_TOKEN":  "secret-token",
				"ESSENZA_POLL_INTERVAL": "-1s",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig(fakeEnvRepo{envVars: tt.envVars})
			assert.Error(t, err)
		})
	}
}

func TestSecret_redactedInLogs(t *testing.T) {
	token := Secret("super-secret-token")

	assert.Equal(t, "*****", token.String())
	assert.Equal(t, "*****", fmt.Sprintf("%s", token))
	assert.Equal(t, "*****", fmt.Sprintf("%v", token))
	assert.NotContains(t, fmt.Sprintf("%#v", token), "super-secret-token")
	assert.Empty(t, Secret("").String())
}
