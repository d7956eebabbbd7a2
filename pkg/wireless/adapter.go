// Package wireless is the Bluetooth LE front-end. The GATT server itself
// lives in gatt_linux.go; everything else is transport independent.
package wireless

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/vanhub/pkg/device"
	"github.com/urmzd/vanhub/pkg/dispatch"
)

// ErrUnsupported is returned by Serve on platforms without a BLE stack.
var ErrUnsupported = errors.New("bluetooth not supported on this platform")

// DefaultNotifyInterval is how often subscribed centrals get the cached level.
const DefaultNotifyInterval = 5 * time.Second

// Adapter translates characteristic reads and writes into intake calls.
type Adapter struct {
	intake *dispatch.Intake

	mu       sync.RWMutex
	selected uuid.UUID
}

// NewAdapter creates an Adapter whose selected device is the first registered one.
func NewAdapter(intake *dispatch.Intake) *Adapter {
	a := &Adapter{intake: intake}
	if devs := intake.Registry().Devices(); len(devs) > 0 {
		a.selected = devs[0].ID
	}
	return a
}

// Selected returns the device reads and notifications refer to.
func (a *Adapter) Selected() uuid.UUID {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.selected
}

func (a *Adapter) selectDevice(id uuid.UUID) {
	a.mu.Lock()
	a.selected = id
	a.mu.Unlock()
}

// Write decodes a payload and submits it. The addressed device becomes the
// selected device.
func (a *Adapter) Write(payload []byte) error {
	req, err := Decode(payload, a.intake.Registry())
	if err != nil {
		log.Warn().Err(err).Str("payload", string(payload)).Msg("Rejected BLE write")
		return err
	}

	rcpt, err := a.intake.Submit(req.Device.ID, req.Action)
	if err != nil {
		log.Warn().Err(err).Str("device", req.Device.Name).Msg("BLE command not accepted")
		return err
	}
	a.selectDevice(req.Device.ID)

	log.Info().Uint64("id", rcpt.ID).Str("device", rcpt.Device).Str("action", rcpt.Action.String()).Msg("BLE command accepted")
	return nil
}

// ReadLevel inquires the selected device and returns its level as ASCII
// decimal. Failures fall back to the last-known level, "0" when unknown.
func (a *Adapter) ReadLevel(ctx context.Context) []byte {
	id := a.Selected()
	if id == uuid.Nil {
		return []byte("0")
	}

	r, err := a.intake.Inquire(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("device", r.Device).Int("fallback", r.Level).Msg("BLE read served last-known level")
	}
	return []byte(strconv.Itoa(r.Level))
}

// ReadLevels inquires every device and returns the levels concatenated in
// registry order, e.g. "3070".
func (a *Adapter) ReadLevels(ctx context.Context) []byte {
	return []byte(Levels(ctx, a.intake))
}

// CachedLevel is the notification value: the selected device's last-known
// level, without touching the mailbox.
func (a *Adapter) CachedLevel() []byte {
	r, err := a.intake.LastKnown(a.Selected())
	if err != nil {
		return []byte("0")
	}
	return []byte(strconv.Itoa(r.Level))
}

// CachedLevels is the levels notification value: every device's last-known
// level in registry order. Notifications never post to the mailbox, so they
// cannot displace a pending command.
func (a *Adapter) CachedLevels() []byte {
	devs := a.intake.Registry().Devices()
	b := make([]byte, 0, len(devs))
	for _, d := range devs {
		lvl := 0
		if r, err := a.intake.LastKnown(d.ID); err == nil {
			lvl = r.Level
		}
		b = strconv.AppendInt(b, int64(lvl), 10)
	}
	return b
}

// Levels runs InquireAll over the whole registry and renders one digit per
// device. Devices that could not be read contribute their last-known level.
func Levels(ctx context.Context, intake *dispatch.Intake) string {
	devs := intake.Registry().Devices()
	ids := make([]uuid.UUID, len(devs))
	for i, d := range devs {
		ids[i] = d.ID
	}

	readings, err := intake.InquireAll(ctx, ids)
	if err != nil && !errors.Is(err, device.ErrNotFound) {
		log.Debug().Err(err).Msg("Some levels served from cache")
	}

	var b strings.Builder
	for _, r := range readings {
		b.WriteString(strconv.Itoa(r.Level))
	}
	return b.String()
}

// notifyLoop pushes value() through write every interval until ctx is done
// or write fails.
func notifyLoop(ctx context.Context, interval time.Duration, value func() []byte, write func([]byte) error) {
	if interval <= 0 {
		interval = DefaultNotifyInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := write(value()); err != nil {
			log.Debug().Err(err).Msg("Notification session ended")
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
