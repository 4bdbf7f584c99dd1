package network

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClient_UploadFile(t *testing.T) {
	var gotPath, gotAuth string
	var gotFields map[string]string
	var gotFileName string
	var gotContent []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseMultipartForm(1024*1024))

		gotFields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			gotFields[k] = v[0]
		}
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close() //nolint:errcheck
		gotFileName = header.Filename
		gotContent, err = io.ReadAll(file)
		require.NoError(t, err)

		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewAPIClient(nil, server.URL, "test-token", log.NewLogger())
	err := client.UploadFile(context.Background(), FileUpload{
		FileName: "formula.json",
		Owner:    "erika.m",
		Data:     []byte("essence of bergamot"),
	})

	require.NoError(t, err)
	assert.Equal(t, "/files/upload", gotPath)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "formula.json", gotFileName)
	assert.Equal(t, []byte("essence of bergamot"), gotContent)
	assert.Equal(t, "erika.m", gotFields["username"])
	assert.NotContains(t, gotFields, "chunkIndex")
}

func TestAPIClient_UploadChunk(t *testing.T) {
	var gotFields map[string]string
	var gotFileName string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1024*1024))
		gotFields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			gotFields[k] = v[0]
		}
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		gotFileName = header.Filename
	}))
	defer server.Close()

	client := NewAPIClient(nil, server.URL, "test-token", log.NewLogger())
	err := client.UploadChunk(context.Background(), ChunkUpload{
		FileName:    "orders.csv",
		Owner:       "erika.m",
		ChunkIndex:  2,
		TotalChunks: 5,
		TotalSize:   4200,
		Data:        []byte("chunk-data"),
	})

	require.NoError(t, err)
	// the chunk keeps the original file name so the server can associate parts
	assert.Equal(t, "orders.csv", gotFileName)
	assert.Equal(t, "erika.m", gotFields["username"])
	assert.Equal(t, "2", gotFields["chunkIndex"])
	assert.Equal(t, "5", gotFields["totalChunks"])
	assert.Equal(t, "4200", gotFields["totalFileSize"])
}

func TestAPIClient_UploadErrorSurfacesResponseBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, err := w.Write([]byte("quota exceeded"))
		require.NoError(t, err)
	}))
	defer server.Close()

	client := NewAPIClient(nil, server.URL, "test-token", log.NewLogger())
	err := client.UploadFile(context.Background(), FileUpload{
		FileName: "report.pdf",
		Owner:    "erika.m",
		Data:     []byte("data"),
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 403")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestAPIClient_TaskProgress(t *testing.T) {
	tests := []struct {
		name     string
		kind     string
		wantPath string
	}{
		{name: "process task", kind: "process", wantPath: "/files/process/task-1/progress"},
		{name: "mask task", kind: "mask", wantPath: "/files/mask/task-1/progress"},
		{name: "archive task", kind: "archive", wantPath: "/archives/task-1/progress"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				w.Header().Set("Content-Type", "application/json")
				_, err := w.Write([]byte(`{"progress": 42}`))
				require.NoError(t, err)
			}))
			defer server.Close()

			client := NewAPIClient(nil, server.URL, "test-token", log.NewLogger())
			progress, err := client.TaskProgress(context.Background(), tt.kind, "task-1")

			require.NoError(t, err)
			assert.Equal(t, 42, progress)
			assert.Equal(t, tt.wantPath, gotPath)
		})
	}
}

func TestAPIClient_TaskProgressUnknownKind(t *testing.T) {
	requestCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
	}))
	defer server.Close()

	client := NewAPIClient(nil, server.URL, "test-token", log.NewLogger())
	_, err := client.TaskProgress(context.Background(), "resize", "task-1")

	require.Error(t, err)
	assert.Zero(t, requestCount)
}

func TestAPIClient_TaskProgressServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, err := w.Write([]byte("task store unavailable"))
		require.NoError(t, err)
	}))
	defer server.Close()

	client := NewAPIClient(nil, server.URL, "test-token", log.NewLogger())
	_, err := client.TaskProgress(context.Background(), "process", "task-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")
}
