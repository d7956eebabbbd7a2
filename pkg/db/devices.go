package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/urmzd/vanhub/pkg/device"
)

// StoredLevel is a persisted device report.
type StoredLevel struct {
	DeviceID   uuid.UUID
	Level      int
	ReportedAt time.Time
}

// DeviceStore mirrors configured devices and remembers their last levels.
type DeviceStore interface {
	Sync(ctx context.Context, devices []device.Device) error
	List(ctx context.Context) ([]device.Device, error)
	SaveLevel(ctx context.Context, id uuid.UUID, level int) error
	Levels(ctx context.Context) ([]StoredLevel, error)

	// LevelChanged persists a level reported to the dispatch loop.
	LevelChanged(ctx context.Context, d device.Device, level int) error
}

// Devices returns a DeviceStore for this database.
func (db *DB) Devices() DeviceStore {
	return &deviceStore{db: db}
}

type deviceStore struct {
	db *DB
}

// Sync makes the devices table match the configuration: rows are upserted and
// devices no longer configured are removed along with their levels.
func (s *deviceStore) Sync(ctx context.Context, devices []device.Device) error {
	return s.db.Tx(ctx, func(tx *sql.Tx) error {
		keep := make([]any, 0, len(devices))
		for _, d := range devices {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO devices (id, name, abbrev, address)
				VALUES (?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					name = excluded.name,
					abbrev = excluded.abbrev,
					address = excluded.address,
					updated_at = datetime('now')
			`, d.ID.String(), d.Name, d.Abbrev, d.Address)
			if err != nil {
				return fmt.Errorf("failed to upsert device %q: %w", d.Name, err)
			}
			keep = append(keep, d.ID.String())
		}

		query := `DELETE FROM devices`
		if len(keep) > 0 {
			query += ` WHERE id NOT IN (?` + strings.Repeat(`, ?`, len(keep)-1) + `)`
		}
		if _, err := tx.ExecContext(ctx, query, keep...); err != nil {
			return fmt.Errorf("failed to prune devices: %w", err)
		}
		return nil
	})
}

func (s *deviceStore) List(ctx context.Context) ([]device.Device, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, abbrev, address FROM devices ORDER BY created_at, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []device.Device
	for rows.Next() {
		var (
			d  device.Device
			id string
		)
		if err := rows.Scan(&id, &d.Name, &d.Abbrev, &d.Address); err != nil {
			return nil, err
		}
		if d.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("corrupt device id %q: %w", id, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *deviceStore) SaveLevel(ctx context.Context, id uuid.UUID, level int) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO device_levels (device_id, level)
		SELECT id, ? FROM devices WHERE id = ?
		ON CONFLICT(device_id) DO UPDATE SET
			level = excluded.level,
			reported_at = datetime('now')
	`, level, id.String())
	if err != nil {
		return fmt.Errorf("failed to save level: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", device.ErrNotFound, id)
	}
	return nil
}

func (s *deviceStore) Levels(ctx context.Context) ([]StoredLevel, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT device_id, level, reported_at FROM device_levels`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredLevel
	for rows.Next() {
		var (
			l         StoredLevel
			id, stamp string
		)
		if err := rows.Scan(&id, &l.Level, &stamp); err != nil {
			return nil, err
		}
		if l.DeviceID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("corrupt device id %q: %w", id, err)
		}
		l.ReportedAt, _ = time.Parse(time.DateTime, stamp)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *deviceStore) LevelChanged(ctx context.Context, d device.Device, level int) error {
	return s.SaveLevel(ctx, d.ID, level)
}
