package clientconf

import "fmt"

// Secret variables are not shown in logs.
type Secret string

const secret = "*****"

// String implements fmt.Stringer.String.
// When a Secret is printed, it prints asterisks instead of the real value.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return secret
}

// GoString implements fmt.GoStringer.GoString.
func (s Secret) GoString() string {
	return fmt.Sprintf("%q", s.String())
}
