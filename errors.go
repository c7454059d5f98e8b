package mailgrade

import (
	"errors"
	"fmt"
)

// ErrEmptyDomain is returned by Scan when the domain is blank after
// normalization.
var ErrEmptyDomain = errors.New("mailgrade: empty domain")

// CheckerError reports a checker that panicked mid-scan. The scan
// fails as a whole rather than recording a fabricated zero score for
// the faulting control.
type CheckerError struct {
	Control string
	Value   any
}

func (e *CheckerError) Error() string {
	return fmt.Sprintf("mailgrade: %s checker panicked: %v", e.Control, e.Value)
}
