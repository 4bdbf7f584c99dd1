package dataexport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/bitrise-io/go-utils/retry"
	"github.com/bitrise-io/go-utils/v2/log"
)

// FetchParams ...
type FetchParams struct {
	SubjectRef      string
	DownloadPath    string
	NumFullRetries  int
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
}

// ErrExportNotFound ...
var ErrExportNotFound = errors.New("no export bundle found for the provided subject")

type fetchService struct {
	client         *s3.Client
	bucket         string
	downloadPath   string
	numFullRetries int
}

// Fetch downloads a previously exported subject-data bundle from the
// customer's bucket. If no bundle exists for the subject, the error is
// ErrExportNotFound.
func Fetch(ctx context.Context, params FetchParams, logger log.Logger) error {
	if params.Bucket == "" {
		return fmt.Errorf("bucket must not be empty")
	}
	if params.SubjectRef == "" {
		return fmt.Errorf("subject reference must not be empty")
	}

	cfg, err := loadAWSCredentials(
		ctx,
		params.Region,
		params.AccessKeyID,
		params.SecretAccessKey,
		logger,
	)
	if err != nil {
		return fmt.Errorf("load aws credentials: %w", err)
	}

	client := s3.NewFromConfig(*cfg)
	service := &fetchService{
		client:         client,
		bucket:         params.Bucket,
		downloadPath:   params.DownloadPath,
		numFullRetries: params.NumFullRetries,
	}

	return service.fetchWithS3Client(ctx, params.SubjectRef, logger)
}

func (service *fetchService) fetchWithS3Client(ctx context.Context, subjectRef string, logger log.Logger) error {
	objectKey := fmt.Sprintf("%s.%s", subjectRef, bundleExtension)

	err := retry.Times(uint(service.numFullRetries)).Wait(5 * time.Second).TryWithAbort(func(attempt uint) (error, bool) {
		if err := service.headObject(ctx, objectKey); err != nil {
			if errors.Is(err, ErrExportNotFound) {
				logger.Debugf("subject %s not found in bucket", subjectRef)
				return err, true
			}
			return err, false
		}
		return nil, true
	})
	if err != nil {
		return fmt.Errorf("bundle lookup failed: %w", err)
	}

	err = retry.Times(uint(service.numFullRetries)).Wait(5 * time.Second).TryWithAbort(func(attempt uint) (error, bool) {
		if err := service.getObject(ctx, objectKey); err != nil {
			return fmt.Errorf("download object: %w", err), false
		}
		return nil, true
	})
	if err != nil {
		return fmt.Errorf("all retries failed: %w", err)
	}

	return nil
}

func (service *fetchService) headObject(ctx context.Context, objectKey string) error {
	_, err := service.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(service.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var apiError smithy.APIError
		if errors.As(err, &apiError) {
			switch apiError.(type) {
			case *types.NotFound:
				return ErrExportNotFound
			default:
				return fmt.Errorf("aws api error: %w", err)
			}
		}
		return fmt.Errorf("generic aws error: %w", err)
	}
	return nil
}

func (service *fetchService) getObject(ctx context.Context, objectKey string) error {
	result, err := service.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(service.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("get object: %w", err)
	}
	defer result.Body.Close() //nolint:errcheck

	file, err := os.Create(service.downloadPath)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer file.Close() //nolint:errcheck

	if _, err := io.Copy(file, result.Body); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	return nil
}
