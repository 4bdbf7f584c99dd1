package transfer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/docker/go-units"
)

// Validator checks a file before any network activity. A zero Validator
// accepts everything except empty files.
type Validator struct {
	// MaxSizeBytes rejects files larger than this limit. 0 means no limit.
	MaxSizeBytes int64
	// AllowedExtensions is a lowercase extension allowlist (".pdf", ".csv").
	// Empty means any extension is accepted.
	AllowedExtensions []string
}

// Validate returns a *ValidationError when the file must not be uploaded.
func (v Validator) Validate(fileName string, size int64) error {
	if size <= 0 {
		return &ValidationError{FileName: fileName, Reason: "file is empty"}
	}

	if v.MaxSizeBytes > 0 && size > v.MaxSizeBytes {
		return &ValidationError{
			FileName: fileName,
			Reason: fmt.Sprintf("file size %s exceeds the %s limit",
				units.HumanSizeWithPrecision(float64(size), 3),
				units.HumanSizeWithPrecision(float64(v.MaxSizeBytes), 3)),
		}
	}

	if len(v.AllowedExtensions) > 0 {
		ext := strings.ToLower(filepath.Ext(fileName))
		for _, allowed := range v.AllowedExtensions {
			if ext == allowed {
				return nil
			}
		}
		return &ValidationError{
			FileName: fileName,
			Reason:   fmt.Sprintf("file type %q is not allowed", ext),
		}
	}

	return nil
}
