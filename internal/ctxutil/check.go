// Package ctxutil holds context helpers shared by the store backends.
package ctxutil

import (
	"context"
	"fmt"
)

// Canceled returns nil while ctx is live. Once ctx is done it returns the
// context error prefixed with op, so errors.Is still matches
// context.Canceled and context.DeadlineExceeded.
func Canceled(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
