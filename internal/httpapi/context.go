package httpapi

import (
	"context"
)

// serverBaseCtx is a process-level context that is canceled on shutdown.
var serverBaseCtx = context.Background()

// SetBaseContext sets the process-level base context used by handlers.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// requestContext joins the request context with the server base context and
// applies the generation timeout, if any. The returned cancel func must be
// called when the handler ends.
func requestContext(r context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(r)
	stop := context.AfterFunc(serverBaseCtx, cancel)
	if generateTimeout > 0 {
		tctx, tcancel := context.WithTimeout(ctx, generateTimeout)
		return tctx, func() {
			tcancel()
			stop()
			cancel()
		}
	}
	return ctx, func() {
		stop()
		cancel()
	}
}
