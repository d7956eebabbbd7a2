package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/vanhub/pkg/action"
	"github.com/urmzd/vanhub/pkg/device"
	"github.com/urmzd/vanhub/pkg/mailbox"
)

// DefaultInquiryTimeout bounds how long a front-end waits for a level.
const DefaultInquiryTimeout = 2 * time.Second

// Receipt is the front-end's own copy of an accepted command.
type Receipt struct {
	ID       uint64        `json:"id"`
	DeviceID uuid.UUID     `json:"device_id"`
	Device   string        `json:"device"`
	Action   action.Action `json:"command"`
	Accepted time.Time     `json:"accepted_at"`
}

// Reading is a device level as seen by a front-end. Stale is set when the
// value is the last-known level rather than a fresh answer; Known is false
// when the device has never reported.
type Reading struct {
	DeviceID uuid.UUID `json:"device_id"`
	Device   string    `json:"device"`
	Level    int       `json:"level"`
	Known    bool      `json:"known"`
	Stale    bool      `json:"stale"`
}

// Intake is the API front-ends use to reach the dispatcher.
type Intake struct {
	box      *mailbox.Mailbox
	registry *device.Registry
	timeout  time.Duration
	metrics  *Metrics
}

// NewIntake creates an Intake. A zero timeout means DefaultInquiryTimeout.
func NewIntake(box *mailbox.Mailbox, registry *device.Registry, timeout time.Duration, metrics *Metrics) *Intake {
	if timeout <= 0 {
		timeout = DefaultInquiryTimeout
	}
	return &Intake{box: box, registry: registry, timeout: timeout, metrics: metrics}
}

// Registry returns the device registry the intake validates against.
func (in *Intake) Registry() *device.Registry { return in.registry }

// Timeout returns the inquiry timeout.
func (in *Intake) Timeout() time.Duration { return in.timeout }

// Mailbox returns a snapshot of the shared slot.
func (in *Intake) Mailbox() mailbox.Exchange { return in.box.Peek() }

// Submit publishes a command. It returns as soon as the command is in the
// mailbox; delivery to the device is asynchronous.
func (in *Intake) Submit(deviceID uuid.UUID, a action.Action) (Receipt, error) {
	dev, err := in.registry.Get(deviceID)
	if err != nil {
		return Receipt{}, err
	}
	if !a.IsValid() {
		return Receipt{}, action.ErrParse
	}

	ex := mailbox.Command(in.box.NextID(), dev.ID, a)
	discarded := in.box.Publish(ex)
	in.noteDiscarded(discarded)

	log.Debug().Uint64("id", ex.ID).Str("device", dev.Name).Str("action", a.String()).Msg("Command submitted")

	return Receipt{
		ID:       ex.ID,
		DeviceID: dev.ID,
		Device:   dev.Name,
		Action:   a,
		Accepted: ex.Posted,
	}, nil
}

// Inquire asks the dispatcher for a device's current level and waits for the
// answer, ctx, or the inquiry timeout, whichever comes first. On failure the
// returned Reading carries the last-known level and Stale is set.
func (in *Intake) Inquire(ctx context.Context, deviceID uuid.UUID) (Reading, error) {
	dev, err := in.registry.Get(deviceID)
	if err != nil {
		return Reading{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, in.timeout)
	defer cancel()
	if ctx.Err() != nil {
		return in.fallback(dev), waitError(ctx)
	}

	ex, reply := mailbox.Inquiry(in.box.NextID(), dev.ID)
	in.noteDiscarded(in.box.Publish(ex))

	select {
	case ans := <-reply:
		in.box.TakeIf(mailbox.AnswerFor(ex.ID))
		if ans.Err != nil {
			if errors.Is(ans.Err, mailbox.ErrSuperseded) {
				in.metrics.inquiry(resultSuperseded)
			}
			return in.fallback(dev), ans.Err
		}
		return Reading{DeviceID: dev.ID, Device: dev.Name, Level: ans.Level, Known: true}, nil

	case <-ctx.Done():
		in.box.Withdraw(ex)
		in.metrics.inquiry(resultTimeout)
		log.Warn().Uint64("id", ex.ID).Str("device", dev.Name).Msg("Inquiry timed out")

		// the answer may have raced the timeout
		select {
		case ans := <-reply:
			if ans.Err == nil {
				return Reading{DeviceID: dev.ID, Device: dev.Name, Level: ans.Level, Known: true}, nil
			}
		default:
		}
		return in.fallback(dev), waitError(ctx)
	}
}

func waitError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	return ErrInquiryTimeout
}

// InquireAll inquires each device in order. All inquiries share one deadline;
// a device that fails contributes its last-known level. The first error is
// returned alongside the complete slice.
func (in *Intake) InquireAll(ctx context.Context, ids []uuid.UUID) ([]Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, in.timeout)
	defer cancel()

	var firstErr error
	out := make([]Reading, 0, len(ids))
	for _, id := range ids {
		r, err := in.Inquire(ctx, id)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			if errors.Is(err, device.ErrNotFound) {
				continue
			}
		}
		out = append(out, r)
	}
	return out, firstErr
}

// LastKnown returns the cached level without touching the mailbox.
func (in *Intake) LastKnown(deviceID uuid.UUID) (Reading, error) {
	dev, err := in.registry.Get(deviceID)
	if err != nil {
		return Reading{}, err
	}
	r := in.fallback(dev)
	r.Stale = false
	return r, nil
}

func (in *Intake) fallback(dev device.Device) Reading {
	lvl, ok := in.registry.Level(dev.ID)
	return Reading{DeviceID: dev.ID, Device: dev.Name, Level: lvl, Known: ok, Stale: true}
}

func (in *Intake) noteDiscarded(ex mailbox.Exchange) {
	switch ex.Kind {
	case mailbox.CommandPending:
		log.Warn().Uint64("id", ex.ID).Str("action", ex.Action.String()).Msg("Unconsumed command overwritten")
	case mailbox.InquiryPending:
		log.Warn().Uint64("id", ex.ID).Msg("Pending inquiry overwritten")
	default:
		return
	}
	in.metrics.discard(ex.Kind.String())
}
