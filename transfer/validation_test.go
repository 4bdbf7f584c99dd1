package transfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidator_Validate(t *testing.T) {
	tests := []struct {
		name      string
		validator Validator
		fileName  string
		size      int64
		wantErr   bool
	}{
		{
			name:      "no limits, regular file",
			validator: Validator{},
			fileName:  "formula.json",
			size:      1024,
		},
		{
			name:      "empty file",
			validator: Validator{},
			fileName:  "empty.csv",
			size:      0,
			wantErr:   true,
		},
		{
			name:      "size at the limit",
			validator: Validator{MaxSizeBytes: 1024},
			fileName:  "report.pdf",
			size:      1024,
		},
		{
			name:      "size over the limit",
			validator: Validator{MaxSizeBytes: 1024},
			fileName:  "report.pdf",
			size:      1025,
			wantErr:   true,
		},
		{
			name:      "allowed extension",
			validator: Validator{AllowedExtensions: []string{".pdf", ".csv"}},
			fileName:  "orders.CSV",
			size:      10,
		},
		{
			name:      "disallowed extension",
			validator: Validator{AllowedExtensions: []string{".pdf", ".csv"}},
			fileName:  "payload.exe",
			size:      10,
			wantErr:   true,
		},
		{
			name:      "no extension with allowlist",
			validator: Validator{AllowedExtensions: []string{".pdf"}},
			fileName:  "README",
			size:      10,
			wantErr:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.validator.Validate(tt.fileName, tt.size)
			if tt.wantErr {
				assert.Error(t, err)
				assert.IsType(t, &ValidationError{}, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
