package transfer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bitrise-io/go-utils/v2/log"

	"github.com/essenza-io/go-erpclient/fileset"
)

// BatchUploader uploads every file matching a set of patterns, one file at
// a time in selection order.
type BatchUploader struct {
	uploader Uploader
	resolver *fileset.Resolver
	logger   log.Logger
}

// NewBatchUploader ...
func NewBatchUploader(uploader Uploader, resolver *fileset.Resolver, logger log.Logger) *BatchUploader {
	return &BatchUploader{
		uploader: uploader,
		resolver: resolver,
		logger:   logger,
	}
}

// UploadPatterns resolves the patterns and uploads each match. It stops at
// the first failed file and returns the number of files fully uploaded.
func (b *BatchUploader) UploadPatterns(ctx context.Context, patterns []string) (int, error) {
	paths, err := b.resolver.Resolve(patterns)
	if err != nil {
		return 0, fmt.Errorf("resolve patterns: %w", err)
	}
	if len(paths) == 0 {
		b.logger.Warnf("The provided patterns match no files, nothing to upload.")
		return 0, nil
	}

	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return i, fmt.Errorf("read file %s: %w", path, err)
		}

		if err := b.uploader.Upload(ctx, filepath.Base(path), data); err != nil {
			return i, fmt.Errorf("upload %s: %w", path, err)
		}
		b.logger.Donef("Uploaded %s", path)
	}

	return len(paths), nil
}
