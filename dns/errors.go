package dns

import "errors"

// DNS lookup errors. ErrDNSNotFound covers both NXDOMAIN and an empty
// answer section; callers that care about the distinction should not,
// because for record auditing the two mean the same thing.
var (
	ErrDNSNotFound = errors.New("dns: record not found")
	ErrDNSTimeout  = errors.New("dns: query timed out")
	ErrDNSServFail = errors.New("dns: server failure")
	ErrDNSRefused  = errors.New("dns: query refused")
	ErrDNSBogus    = errors.New("dns: dnssec validation failed")
)

// IsNotFound reports whether err indicates a missing record or name.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDNSNotFound)
}

// IsTimeout reports whether err indicates a query timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrDNSTimeout)
}

// IsServFail reports whether err indicates an upstream server failure.
func IsServFail(err error) bool {
	return errors.Is(err, ErrDNSServFail)
}

// IsTemporary reports whether err may succeed on retry.
func IsTemporary(err error) bool {
	return IsTimeout(err) || IsServFail(err)
}
