package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bitrise-io/go-utils/v2/log"
)

// FileUpload is a whole-file upload request to the ERP file endpoint.
type FileUpload struct {
	FileName string
	Owner    string
	Data     []byte
}

// ChunkUpload is a single chunk of a larger file. The server assembles
// chunks in arrival order, so senders must upload them sequentially.
type ChunkUpload struct {
	FileName    string
	Owner       string
	ChunkIndex  int
	TotalChunks int
	TotalSize   int64
	Data        []byte
}

// FileTransport ...
type FileTransport interface {
	UploadFile(ctx context.Context, upload FileUpload) error
	UploadChunk(ctx context.Context, upload ChunkUpload) error
}

// TaskStatusClient ...
type TaskStatusClient interface {
	TaskProgress(ctx context.Context, kind string, taskID string) (int, error)
}

// APIClient talks to the ERP backend's file and task endpoints.
// Upload requests are issued once and never retried here: on failure the
// caller aborts the whole transfer (the server cleans up incomplete uploads).
type APIClient struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	logger      log.Logger
}

// NewAPIClient creates a new APIClient. `httpClient` can be nil, in which
// case a client tuned for uploads is used.
func NewAPIClient(httpClient *http.Client, baseURL string, accessToken string, logger log.Logger) *APIClient {
	if httpClient == nil {
		httpClient = DefaultHTTPClient()
	}
	return &APIClient{
		httpClient:  httpClient,
		baseURL:     baseURL,
		accessToken: accessToken,
		logger:      logger,
	}
}

// UploadFile sends the whole file in a single request.
func (c *APIClient) UploadFile(ctx context.Context, upload FileUpload) error {
	fields := map[string]string{
		"username": upload.Owner,
	}
	return c.postFile(ctx, upload.FileName, upload.Data, fields)
}

// UploadChunk sends one byte range of a chunked upload. The chunk keeps the
// original file name so the server can associate the parts.
func (c *APIClient) UploadChunk(ctx context.Context, upload ChunkUpload) error {
	fields := map[string]string{
		"username":      upload.Owner,
		"chunkIndex":    strconv.Itoa(upload.ChunkIndex),
		"totalChunks":   strconv.Itoa(upload.TotalChunks),
		"totalFileSize": strconv.FormatInt(upload.TotalSize, 10),
	}
	return c.postFile(ctx, upload.FileName, upload.Data, fields)
}

func (c *APIClient) postFile(ctx context.Context, fileName string, data []byte, fields map[string]string) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("write file part: %w", err)
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %w", err)
	}

	uploadURL := fmt.Sprintf("%s/files/upload", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, &body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.accessToken))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Printf(err.Error())
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return unwrapError(resp)
	}
	return nil
}

type progressResponse struct {
	Progress int `json:"progress"`
}

// TaskProgress queries the completion percentage of a long-running server
// task. The kind selects the status endpoint family.
func (c *APIClient) TaskProgress(ctx context.Context, kind string, taskID string) (int, error) {
	var family string
	switch kind {
	case "process":
		family = "files/process"
	case "mask":
		family = "files/mask"
	case "archive":
		family = "archives"
	default:
		return 0, fmt.Errorf("no status endpoint for task kind %q", kind)
	}

	statusURL := fmt.Sprintf("%s/%s/%s/progress", c.baseURL, family, url.PathEscape(taskID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.accessToken))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Printf(err.Error())
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return 0, unwrapError(resp)
	}

	var response progressResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return 0, fmt.Errorf("decode progress response: %w", err)
	}
	return response.Progress, nil
}

func unwrapError(resp *http.Response) error {
	errorResp, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return err
	}
	return fmt.Errorf("HTTP %d: %s", resp.StatusCode, errorResp)
}
