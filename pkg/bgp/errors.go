package bgp

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStructure is the sentinel wrapped by every StructuralError.
var ErrStructure = errors.New("malformed BGP state")

// StructuralError reports a value in a BGP state tree that does not have
// the expected shape.
type StructuralError struct {
	Path []string // keys leading to the bad value
	Want string   // "mapping" or "string"
	Got  any      // offending value
}

func (e *StructuralError) Error() string {
	where := "<root>"
	if len(e.Path) > 0 {
		where = strings.Join(e.Path, "/")
	}
	return fmt.Sprintf("malformed BGP state at %s: want %s, got %T", where, e.Want, e.Got)
}

func (e *StructuralError) Unwrap() error {
	return ErrStructure
}

func newStructuralError(path []string, want string, got any) *StructuralError {
	p := make([]string, len(path))
	copy(p, path)
	return &StructuralError{Path: p, Want: want, Got: got}
}
