package dataexport

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/bitrise-io/go-utils/retry"
	"github.com/bitrise-io/go-utils/v2/log"
)

const numExportRetries = 3

const bundleExtension = "tzst"

// ExportParams ...
type ExportParams struct {
	BundlePath     string
	BundleChecksum string
	BundleSize     int64
	// SubjectRef identifies the data subject the export belongs to. It
	// becomes the object key in the bucket.
	SubjectRef      string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
}

type exportService struct {
	client         *s3.Client
	bucket         string
	bundlePath     string
	bundleChecksum string
	bundleSize     int64
}

// Export uploads a subject-data bundle to the customer's bucket and
// associates it with the subject reference.
func Export(ctx context.Context, params ExportParams, logger log.Logger) error {
	if params.Bucket == "" {
		return fmt.Errorf("Bucket must not be empty")
	}
	if params.BundlePath == "" {
		return fmt.Errorf("BundlePath must not be empty")
	}
	if params.BundleSize == 0 {
		return fmt.Errorf("BundleSize must not be empty")
	}
	if params.SubjectRef == "" {
		return fmt.Errorf("SubjectRef must not be empty")
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
	service := &exportService{
		client:         client,
		bucket:         params.Bucket,
		bundlePath:     params.BundlePath,
		bundleChecksum: params.BundleChecksum,
		bundleSize:     params.BundleSize,
	}

	return service.exportWithS3Client(ctx, params.SubjectRef, logger)
}

// If the object for the subject & checksum exists in the bucket -> extend expiration
// If the object for the subject exists in the bucket -> upload -> overwrites existing object & expiration
// If the object is not yet present in the bucket -> upload
func (service *exportService) exportWithS3Client(ctx context.Context, subjectRef string, logger log.Logger) error {
	objectKey := fmt.Sprintf("%s.%s", subjectRef, bundleExtension)
	checksum, err := service.findChecksumWithRetry(ctx, objectKey)
	if err != nil {
		return fmt.Errorf("validate object: %w", err)
	}

	if checksum == service.bundleChecksum {
		logger.Debugf("Found bundle with the same checksum. Extending expiration time...")
		if err := service.copyObjectWithRetry(ctx, objectKey, logger); err != nil {
			return fmt.Errorf("copy object: %w", err)
		}
		return nil
	}

	logger.Debugf("Uploading bundle...")
	if err := service.putObjectWithRetry(ctx, objectKey); err != nil {
		return fmt.Errorf("upload bundle: %w", err)
	}

	return nil
}

// findChecksumWithRetry tries to find the bundle in the bucket.
// If the object is present, it returns its SHA-256 checksum.
// If the object isn't present, it returns an empty string.
func (service *exportService) findChecksumWithRetry(ctx context.Context, objectKey string) (string, error) {
	var checksum string
	err := retry.Times(numExportRetries).Wait(5 * time.Second).TryWithAbort(func(attempt uint) (error, bool) {
		_, err := service.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(service.bucket),
			Key:    aws.String(objectKey),
		})
		if err != nil {
			var apiError smithy.APIError
			if errors.As(err, &apiError) {
				switch apiError.(type) {
				case *types.NotFound:
					// continue with upload
					return nil, true
				default:
					return fmt.Errorf("validating object: %w", err), false
				}
			}
		}

		attributes, err := service.client.GetObjectAttributes(ctx, &s3.GetObjectAttributesInput{
			Bucket: aws.String(service.bucket),
			Key:    aws.String(objectKey),
			ObjectAttributes: []types.ObjectAttributes{
				"Checksum",
			},
		})
		if err != nil {
			return fmt.Errorf("get bundle object attributes: %w", err), false
		}

		if attributes != nil && attributes.Checksum != nil && attributes.Checksum.ChecksumSHA256 != nil {
			decodedChecksum, err := base64.StdEncoding.DecodeString(*attributes.Checksum.ChecksumSHA256)
			if err != nil {
				return fmt.Errorf("base64 decode checksum: %w", err), true
			}

			checksum = hex.EncodeToString(decodedChecksum)
		}

		return nil, true
	})

	return checksum, err
}

// By copying an S3 object into itself with the same Storage Class, the expiration date gets extended.
// copyObjectWithRetry uses this trick to extend bundle expiration.
func (service *exportService) copyObjectWithRetry(ctx context.Context, objectKey string, logger log.Logger) error {
	return retry.Times(numExportRetries).Wait(5 * time.Second).TryWithAbort(func(attempt uint) (error, bool) {
		resp, err := service.client.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:       aws.String(service.bucket),
			Key:          aws.String(objectKey),
			StorageClass: types.StorageClassStandard,
			CopySource:   aws.String(fmt.Sprintf("%s/%s", service.bucket, objectKey)),
		})
		if err != nil {
			return fmt.Errorf("extend expiration: %w", err), false
		}
		if resp != nil && resp.Expiration != nil {
			logger.Debugf("New expiration date is %s", *resp.Expiration)
		}
		return nil, true
	})
}

func (service *exportService) putObjectWithRetry(ctx context.Context, objectKey string) error {
	return retry.Times(numExportRetries).Wait(5 * time.Second).TryWithAbort(func(attempt uint) (error, bool) {
		file, err := os.Open(service.bundlePath)
		if err != nil {
			return fmt.Errorf("open bundle path: %w", err), true
		}
		defer file.Close() //nolint:errcheck

		var partMB int64 = 10
		uploader := manager.NewUploader(service.client, func(u *manager.Uploader) {
			u.PartSize = partMB * 1024 * 1024
		})

		_, err = uploader.Upload(ctx, &s3.PutObjectInput{
			Body:              file,
			Bucket:            aws.String(service.bucket),
			Key:               aws.String(objectKey),
			ContentType:       aws.String("application/zstd"),
			ContentLength:     aws.Int64(service.bundleSize),
			ContentEncoding:   aws.String("zstd"),
			ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
		})
		if err != nil {
			return fmt.Errorf("upload bundle: %w", err), false
		}

		return nil, true
	})
}

func loadAWSCredentials(
	ctx context.Context,
	region string,
	accessKeyID string,
	secretKey string,
	logger log.Logger,
) (*aws.Config, error) {
	if region == "" {
		return nil, fmt.Errorf("region must not be empty")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}

	if accessKeyID != "" && secretKey != "" {
		logger.Debugf("aws credentials provided, using them...")
		opts = append(opts,
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config, %v", err)
	}

	return &cfg, nil
}
