package transfer

import (
	"context"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"

	"github.com/essenza-io/go-erpclient/transfer/network"
)

// Uploader ...
type Uploader interface {
	Upload(ctx context.Context, fileName string, data []byte) error
	Progress() float64
	IsUploading() bool
	Err() error
}

// Config holds configuration for a file uploader.
type Config struct {
	// Owner is the identity the uploaded files belong to.
	Owner string

	// ChunkSizeBytes is the threshold above which a file is split into
	// chunks. Files of exactly this size still go up in one request.
	ChunkSizeBytes int64

	// Validator runs before any network activity.
	Validator Validator

	// OnProgress, if set, is called with the updated percentage after every
	// acknowledged request, before the next chunk is issued.
	OnProgress func(percent float64)
}

type fileUploader struct {
	transport network.FileTransport
	config    Config
	logger    log.Logger
	tracker   *Tracker
}

// NewUploader creates a new file uploader. The uploader is meant for one
// in-flight upload at a time; starting a new upload resets the progress.
func NewUploader(transport network.FileTransport, config Config, logger log.Logger) *fileUploader {
	return &fileUploader{
		transport: transport,
		config:    config,
		logger:    logger,
		tracker:   NewTracker(),
	}
}

// Upload transfers a file to the ERP backend. Files up to the configured
// chunk size go up in a single request; larger files are split into
// ceil(size/chunkSize) chunks uploaded strictly one after another, so the
// server receives them in order. Each chunk must be acknowledged before
// the next one is sent. On the first failed request the upload aborts:
// nothing is retried and already-sent chunks are not rolled back.
func (u *fileUploader) Upload(ctx context.Context, fileName string, data []byte) error {
	if err := u.config.Validator.Validate(fileName, int64(len(data))); err != nil {
		u.logger.Warnf("Upload rejected: %s", err)
		return err
	}

	u.tracker.start()
	size := int64(len(data))
	start := time.Now()

	if size <= u.config.ChunkSizeBytes {
		err := u.uploadWhole(ctx, fileName, data)
		u.tracker.finish(err)
		return err
	}

	err := u.uploadChunked(ctx, fileName, data)
	if err == nil {
		u.logger.Donef("Uploaded %s (%s) in %s",
			fileName, units.HumanSizeWithPrecision(float64(size), 3), time.Since(start).Round(time.Second))
	}
	u.tracker.finish(err)
	return err
}

// Progress returns the progress of the current or last upload (0-100).
func (u *fileUploader) Progress() float64 {
	return u.tracker.Progress()
}

// IsUploading reports whether an upload is currently running.
func (u *fileUploader) IsUploading() bool {
	return u.tracker.IsUploading()
}

// Err returns the error of the last upload, or nil.
func (u *fileUploader) Err() error {
	return u.tracker.Err()
}

func (u *fileUploader) uploadWhole(ctx context.Context, fileName string, data []byte) error {
	u.logger.Debugf("Uploading %s in a single request", fileName)

	err := u.transport.UploadFile(ctx, network.FileUpload{
		FileName: fileName,
		Owner:    u.config.Owner,
		Data:     data,
	})
	if err != nil {
		return &TransferError{FileName: fileName, ChunkIndex: WholeFile, Err: err}
	}
	u.setProgress(100)
	return nil
}

func (u *fileUploader) uploadChunked(ctx context.Context, fileName string, data []byte) error {
	size := int64(len(data))
	chunkSize := u.config.ChunkSizeBytes
	totalChunks := int((size + chunkSize - 1) / chunkSize)

	u.logger.Debugf("Uploading %s in %d chunks, %dB each", fileName, totalChunks, chunkSize)

	for index := 0; index < totalChunks; index++ {
		from := int64(index) * chunkSize
		to := from + chunkSize
		if to > size {
			to = size
		}

		err := u.transport.UploadChunk(ctx, network.ChunkUpload{
			FileName:    fileName,
			Owner:       u.config.Owner,
			ChunkIndex:  index,
			TotalChunks: totalChunks,
			TotalSize:   size,
			Data:        data[from:to],
		})
		if err != nil {
			return &TransferError{FileName: fileName, ChunkIndex: index, Err: err}
		}

		u.setProgress(float64(index+1) / float64(totalChunks) * 100)
	}

	return nil
}

func (u *fileUploader) setProgress(percent float64) {
	u.tracker.setProgress(percent)
	if u.config.OnProgress != nil {
		u.config.OnProgress(percent)
	}
}
