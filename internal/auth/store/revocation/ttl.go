// Package revocation holds the token revocation list: JTIs of logged-out
// access tokens, kept until the token would have expired anyway.
package revocation

import (
	"errors"
	"fmt"
	"time"
)

// Clock returns the current time.
type Clock func() time.Time

var errNonPositiveTTL = errors.New("ttl must be positive")

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("revoke token: %w", errNonPositiveTTL)
	}
	return nil
}
