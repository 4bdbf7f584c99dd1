package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/melbahja/got"
)

// DownloadParams ...
type DownloadParams struct {
	APIBaseURL   string
	Token        string
	FileID       string
	DownloadPath string
}

// ErrFileNotFound ...
var ErrFileNotFound = errors.New("no file found for the provided ID")

type downloadURLResponse struct {
	URL      string `json:"url"`
	FileName string `json:"file_name"`
}

// Download fetches a stored file (original, processed, or masked) to a
// local path. Unlike uploads, downloads are retried on transient errors.
// If the file doesn't exist on the server, the error is ErrFileNotFound.
func Download(ctx context.Context, params DownloadParams, logger log.Logger) (string, error) {
	if params.APIBaseURL == "" {
		return "", fmt.Errorf("API base URL is empty")
	}
	if params.Token == "" {
		return "", fmt.Errorf("API token is empty")
	}
	if params.FileID == "" {
		return "", fmt.Errorf("file ID is empty")
	}

	retryableHTTPClient := retryhttp.NewClient(logger)
	retryableHTTPClient.CheckRetry = createCustomRetryFunction(logger)

	logger.Debugf("Get download URL")
	response, err := fetchDownloadURL(ctx, retryableHTTPClient, params)
	if err != nil {
		return "", fmt.Errorf("failed to get download URL: %w", err)
	}

	logger.Debugf("Download file")
	err = downloadFile(ctx, retryableHTTPClient.StandardClient(), response.URL, params.DownloadPath)
	if err != nil {
		return "", fmt.Errorf("failed to download file: %w", err)
	}

	return response.FileName, nil
}

func fetchDownloadURL(ctx context.Context, client *retryablehttp.Client, params DownloadParams) (downloadURLResponse, error) {
	apiURL := fmt.Sprintf("%s/files/%s/url", params.APIBaseURL, url.PathEscape(params.FileID))

	req, err := retryablehttp.NewRequest(http.MethodGet, apiURL, nil)
	if err != nil {
		return downloadURLResponse{}, err
	}
	req = req.WithContext(ctx)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", params.Token))

	resp, err := client.Do(req)
	if err != nil {
		return downloadURLResponse{}, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		return downloadURLResponse{}, ErrFileNotFound
	}
	if resp.StatusCode != http.StatusOK {
		errorResp, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if err != nil {
			return downloadURLResponse{}, err
		}
		return downloadURLResponse{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, errorResp)
	}

	var response downloadURLResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return downloadURLResponse{}, err
	}
	return response, nil
}

func createCustomRetryFunction(logger log.Logger) func(context.Context, *http.Response, error) (bool, error) {
	return func(ctx context.Context, resp *http.Response, downloadErr error) (bool, error) {
		retry, err := retryablehttp.DefaultRetryPolicy(ctx, resp, downloadErr)
		logger.Debugf("CheckRetry: retry=%v ; err=%+v ; downloadErr=%+v", retry, err, downloadErr)
		return retry, err
	}
}

func downloadFile(ctx context.Context, client *http.Client, url string, dest string) error {
	downloader := got.New()
	downloader.Client = client

	return downloader.Do(got.NewDownload(ctx, url, dest))
}
