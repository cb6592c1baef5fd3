package httpapi

import "time"

// maxBodyBytes controls the maximum allowed request body size for JSON endpoints.
var maxBodyBytes int64 = 1 << 20

// SetMaxBodyBytes allows configuring the maximum request body size.
// Non-positive values restore the 1 MiB default.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 1 << 20
		return
	}
	maxBodyBytes = n
}

// generateTimeout bounds a single /generate or /chat/completions call.
// Zero means no additional timeout beyond server/connection timeouts.
var generateTimeout time.Duration

// SetGenerateTimeout sets the generation timeout (0 disables).
func SetGenerateTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	generateTimeout = d
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
}
