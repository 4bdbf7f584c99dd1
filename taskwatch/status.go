package taskwatch

import (
	"context"

	"github.com/essenza-io/go-erpclient/transfer/network"
)

type apiFetcher struct {
	client network.TaskStatusClient
}

// NewAPIFetcher adapts the ERP API client into a ProgressFetcher.
func NewAPIFetcher(client network.TaskStatusClient) ProgressFetcher {
	return apiFetcher{client: client}
}

func (f apiFetcher) FetchProgress(ctx context.Context, kind Kind, taskID string) (int, error) {
	return f.client.TaskProgress(ctx, string(kind), taskID)
}
