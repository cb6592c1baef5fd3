//go:build windows

package download

import "time"

// DefaultLockReleaseDelay gives Windows time to drop its mandatory lock on the
// freshly closed file before the loader opens it.
const DefaultLockReleaseDelay = 2 * time.Second
