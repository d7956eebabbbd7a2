package device

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/vanhub/pkg/action"
)

// Executor performs device I/O. Only the dispatch loop calls it, one call at a time.
type Executor interface {
	// Send delivers an action to the device
	Send(ctx context.Context, d Device, a action.Action) error

	// Status queries the device's current level
	Status(ctx context.Context, d Device) (int, error)
}

// NullExecutor is used in dry-run mode when no device network is reachable.
// Commands are accepted and discarded; status queries fail.
type NullExecutor struct{}

// NewNullExecutor creates a new NullExecutor.
func NewNullExecutor() *NullExecutor {
	return &NullExecutor{}
}

func (NullExecutor) Send(ctx context.Context, d Device, a action.Action) error {
	log.Info().Str("device", d.Name).Str("action", a.String()).Msg("Dry run, command not sent")
	return nil
}

func (NullExecutor) Status(ctx context.Context, d Device) (int, error) {
	return 0, ErrNotConnected
}
