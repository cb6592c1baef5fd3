//go:build !windows

package download

import "time"

// DefaultLockReleaseDelay is zero where file locks are advisory.
const DefaultLockReleaseDelay time.Duration = 0
