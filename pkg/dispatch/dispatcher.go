// Package dispatch owns device I/O. A single Dispatcher goroutine drains the
// mailbox; front-ends talk to it only through an Intake.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/vanhub/pkg/action"
	"github.com/urmzd/vanhub/pkg/device"
	"github.com/urmzd/vanhub/pkg/mailbox"
)

const (
	DefaultTick          = 10 * time.Millisecond
	DefaultDeviceTimeout = 1500 * time.Millisecond
)

// LevelObserver is told about every level a device reports.
type LevelObserver interface {
	LevelChanged(ctx context.Context, d device.Device, level int) error
}

// Options tune the dispatch loop.
type Options struct {
	Tick          time.Duration
	Dedup         bool
	DeviceTimeout time.Duration
	Metrics       *Metrics
	Observers     []LevelObserver
}

// Dispatcher drains the mailbox and performs device I/O, one call at a time.
type Dispatcher struct {
	box      *mailbox.Mailbox
	registry *device.Registry
	exec     device.Executor
	opts     Options

	last    lastCommand
	hasLast bool
}

type lastCommand struct {
	deviceID uuid.UUID
	action   action.Action
}

// New creates a Dispatcher. Zero durations in opts fall back to defaults.
func New(box *mailbox.Mailbox, registry *device.Registry, exec device.Executor, opts Options) *Dispatcher {
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.DeviceTimeout <= 0 {
		opts.DeviceTimeout = DefaultDeviceTimeout
	}
	return &Dispatcher{box: box, registry: registry, exec: exec, opts: opts}
}

// Run ticks until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.opts.Tick)
	defer ticker.Stop()

	log.Info().Dur("tick", d.opts.Tick).Bool("dedup", d.opts.Dedup).Msg("Dispatch loop started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Dispatch loop stopped")
			return nil
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick handles at most one pending command and one pending inquiry.
func (d *Dispatcher) Tick(ctx context.Context) {
	if ex, ok := d.box.TakeIf(mailbox.Is(mailbox.CommandPending)); ok {
		d.handleCommand(ctx, ex)
	}
	if ex, ok := d.box.TakeIf(mailbox.Is(mailbox.InquiryPending)); ok {
		d.handleInquiry(ctx, ex)
	}
}

func (d *Dispatcher) handleCommand(ctx context.Context, ex mailbox.Exchange) {
	logger := log.With().Uint64("id", ex.ID).Str("action", ex.Action.String()).Logger()

	cmd := lastCommand{deviceID: ex.DeviceID, action: ex.Action}
	if d.opts.Dedup && d.hasLast && d.last == cmd {
		logger.Debug().Str("device_id", ex.DeviceID.String()).Msg("Duplicate command dropped")
		d.opts.Metrics.command(resultDuplicate)
		return
	}

	dev, err := d.registry.Get(ex.DeviceID)
	if err != nil {
		logger.Warn().Err(err).Msg("Command for unknown device dropped")
		d.opts.Metrics.command(resultUnknown)
		return
	}

	if err := d.send(ctx, dev, ex.Action); err != nil {
		logger.Error().Err(err).Str("device", dev.Name).Msg("Command failed")
		d.opts.Metrics.command(resultFailed)
		// a failed send leaves nothing to dedup against
		d.hasLast = false
		return
	}

	d.last, d.hasLast = cmd, true
	logger.Info().Str("device", dev.Name).Msg("Command executed")
	d.opts.Metrics.command(resultOK)
}

func (d *Dispatcher) handleInquiry(ctx context.Context, ex mailbox.Exchange) {
	logger := log.With().Uint64("id", ex.ID).Logger()

	dev, err := d.registry.Get(ex.DeviceID)
	if err != nil {
		logger.Warn().Err(err).Msg("Inquiry for unknown device")
		d.opts.Metrics.inquiry(resultUnknown)
		d.box.Resolve(ex, 0, err)
		return
	}

	level, err := d.status(ctx, dev)
	if err == nil {
		err = d.registry.SetLevel(dev.ID, level)
	}
	if err != nil {
		if !errors.Is(err, device.ErrUnreachable) {
			err = fmt.Errorf("%w: %w", device.ErrUnreachable, err)
		}
		logger.Error().Err(err).Str("device", dev.Name).Msg("Status query failed")
		d.opts.Metrics.inquiry(resultFailed)
		d.box.Resolve(ex, 0, err)
		return
	}

	d.box.Resolve(ex, level, nil)
	d.opts.Metrics.inquiry(resultOK)
	logger.Debug().Str("device", dev.Name).Int("level", level).Msg("Status query answered")

	for _, o := range d.opts.Observers {
		octx, cancel := context.WithTimeout(ctx, d.opts.DeviceTimeout)
		err := o.LevelChanged(octx, dev, level)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Str("device", dev.Name).Msg("Level observer failed")
		}
	}
}

func (d *Dispatcher) send(ctx context.Context, dev device.Device, a action.Action) (err error) {
	ctx, cancel := context.WithTimeout(ctx, d.opts.DeviceTimeout)
	defer cancel()
	defer recoverExecutor(&err)

	return d.exec.Send(ctx, dev, a)
}

func (d *Dispatcher) status(ctx context.Context, dev device.Device) (level int, err error) {
	ctx, cancel := context.WithTimeout(ctx, d.opts.DeviceTimeout)
	defer cancel()
	defer recoverExecutor(&err)

	return d.exec.Status(ctx, dev)
}

func recoverExecutor(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("executor panic: %v", r)
	}
}
