//go:build !linux

package wireless

import "context"

// Serve is unavailable off linux.
func Serve(ctx context.Context, a *Adapter, opts Options) error {
	return ErrUnsupported
}
