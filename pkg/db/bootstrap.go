package db

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/vanhub/pkg/device"
)

// Bootstrap mirrors the registry into the database and seeds the registry
// with the levels remembered from the previous run.
func (db *DB) Bootstrap(ctx context.Context, reg *device.Registry) error {
	store := db.Devices()

	if err := store.Sync(ctx, reg.Devices()); err != nil {
		return fmt.Errorf("failed to sync devices: %w", err)
	}

	levels, err := store.Levels(ctx)
	if err != nil {
		return fmt.Errorf("failed to load levels: %w", err)
	}

	restored := 0
	for _, l := range levels {
		if err := reg.SetLevel(l.DeviceID, l.Level); err != nil {
			log.Warn().Err(err).Str("device_id", l.DeviceID.String()).Msg("Ignoring stored level")
			continue
		}
		restored++
	}

	log.Info().Int("devices", reg.Len()).Int("levels", restored).Msg("Database bootstrapped")
	return nil
}
