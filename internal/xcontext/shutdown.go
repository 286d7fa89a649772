package xcontext

import "context"

type shutdownKey struct{}

// WithShutdown attaches the server's base context. Once base is done, every
// context derived from ctx reports a shutdown in progress, including requests
// that were already running when it began.
func WithShutdown(ctx, base context.Context) context.Context {
	return context.WithValue(ctx, shutdownKey{}, base)
}

// IsShutdownInProgress is false for contexts without an attached base.
func IsShutdownInProgress(ctx context.Context) bool {
	base, ok := ctx.Value(shutdownKey{}).(context.Context)
	return ok && base.Err() != nil
}
