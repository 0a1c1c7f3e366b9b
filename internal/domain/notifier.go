package domain

import "context"

// Notifier pushes run outcomes to an operator channel. Failures to
// notify are logged, never propagated.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}
