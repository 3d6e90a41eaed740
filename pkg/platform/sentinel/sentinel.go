// Package sentinel defines errors for infrastructure facts. Store facades
// attach these as the wrapped cause so callers can test for the fact with
// errors.Is without depending on driver-specific error types.
package sentinel

import "errors"

// ErrUnavailable means the store is temporarily unreachable; callers may
// retry with backoff.
var ErrUnavailable = errors.New("unavailable")
