// Package dataexport ships GDPR data-mapping exports to customer-controlled
// storage. Exported records are bundled into a tar+zstd archive and
// uploaded directly to an S3 bucket.
package dataexport

import (
	"archive/tar"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/klauspost/compress/zstd"
)

// Bundler creates and extracts subject-data bundles.
type Bundler struct {
	logger log.Logger
}

// NewBundler ...
func NewBundler(logger log.Logger) *Bundler {
	return &Bundler{logger: logger}
}

// Compress writes the given files and directories into a tar+zstd bundle
// at bundlePath. Paths are stored as given, so absolute paths stay
// absolute in the bundle.
func (b *Bundler) Compress(bundlePath string, includePaths []string) error {
	bundleFile, err := os.OpenFile(bundlePath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("create bundle file: %w", err)
	}
	defer bundleFile.Close() //nolint:errcheck

	zstdWriter, err := zstd.NewWriter(bundleFile)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	tw := tar.NewWriter(zstdWriter)

	for _, p := range includePaths {
		path := filepath.Clean(p)
		if err := filepath.Walk(path, func(file string, fi os.FileInfo, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}

			header, err := tar.FileInfoHeader(fi, file)
			if err != nil {
				return fmt.Errorf("create file info header: %w", err)
			}
			header.Name = filepath.Clean(file)

			if fi.Mode()&os.ModeSymlink != 0 {
				link, err := os.Readlink(file)
				if err != nil {
					return fmt.Errorf("read symlink: %w", err)
				}
				header.Typeflag = tar.TypeSymlink
				header.Linkname = link
			}

			if err := tw.WriteHeader(header); err != nil {
				return fmt.Errorf("write tar file header: %w", err)
			}

			if !fi.Mode().IsRegular() || fi.IsDir() {
				return nil
			}

			data, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open file: %w", err)
			}
			if _, err := io.Copy(tw, data); err != nil {
				return fmt.Errorf("copy to bundle: %w", err)
			}
			if err := data.Close(); err != nil {
				return fmt.Errorf("close file: %w", err)
			}
			return nil
		}); err != nil {
			return fmt.Errorf("iterate on files: %w", err)
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar writer: %w", err)
	}
	if err := zstdWriter.Close(); err != nil {
		return fmt.Errorf("close zstd writer: %w", err)
	}

	return nil
}

// Extract unpacks a bundle into destinationDirectory.
func (b *Bundler) Extract(bundlePath string, destinationDirectory string) error {
	bundleFile, err := os.Open(bundlePath)
	if err != nil {
		return fmt.Errorf("read bundle %s: %w", bundlePath, err)
	}
	defer bundleFile.Close() //nolint:errcheck

	zr, err := zstd.NewReader(bundleFile)
	if err != nil {
		return fmt.Errorf("create zstd reader: %w", err)
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read bundle entry: %w", err)
		}

		target := filepath.ToSlash(header.Name)
		if destinationDirectory != "" {
			target = filepath.Join(destinationDirectory, target)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if _, err := os.Stat(target); err != nil {
				if err := os.MkdirAll(target, 0755); err != nil {
					return fmt.Errorf("create target directories: %w", err)
				}
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("create target directories: %w", err)
			}
			fileToWrite, err := os.OpenFile(target, os.O_CREATE|os.O_RDWR, os.FileMode(header.Mode))
			if err != nil {
				return fmt.Errorf("create file: %w", err)
			}
			if _, err := io.Copy(fileToWrite, tr); err != nil {
				return fmt.Errorf("copy content to file: %w", err)
			}
			// close after each file; defering would keep every file open
			// until the whole bundle is extracted.
			if err := fileToWrite.Close(); err != nil {
				return fmt.Errorf("write file: %w", err)
			}
		case tar.TypeSymlink:
			if err := os.Symlink(header.Linkname, target); err != nil {
				return fmt.Errorf("symlink file: %w", err)
			}
		}
	}
	return nil
}

// ChecksumOfFile returns the hex-encoded SHA-256 checksum of a file.
func ChecksumOfFile(path string) (string, error) {
	hash := sha256.New()

	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close() //nolint:errcheck

	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}
