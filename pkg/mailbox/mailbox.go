// Package mailbox implements the single-slot exchange shared by the front-ends
// and the dispatch loop.
//
// The slot holds at most one value. Writers overwrite whatever is there; the
// dispatcher takes values out with TakeIf. Inquiries carry a buffered one-shot
// reply channel so the asking goroutine can wait without polling the slot.
package mailbox

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/urmzd/vanhub/pkg/action"
)

// ErrSuperseded is delivered to an inquiry that was overwritten before the
// dispatcher took it.
var ErrSuperseded = errors.New("request superseded")

// Kind tags the value held by the mailbox.
type Kind uint8

const (
	Idle Kind = iota
	CommandPending
	InquiryPending
	InquiryAnswered
)

func (k Kind) String() string {
	switch k {
	case Idle:
		return "idle"
	case CommandPending:
		return "command_pending"
	case InquiryPending:
		return "inquiry_pending"
	case InquiryAnswered:
		return "inquiry_answered"
	}
	return "unknown"
}

// Answer is the outcome of an inquiry.
type Answer struct {
	ID    uint64
	Level int
	Err   error
}

// Exchange is the tagged value stored in the slot. Which fields are set
// depends on Kind.
type Exchange struct {
	Kind     Kind
	ID       uint64
	DeviceID uuid.UUID
	Action   action.Action // CommandPending
	Level    int           // InquiryAnswered
	Err      error         // InquiryAnswered
	Posted   time.Time

	reply     chan Answer
	withdrawn *atomic.Bool
}

// Command builds a CommandPending exchange.
func Command(id uint64, deviceID uuid.UUID, a action.Action) Exchange {
	return Exchange{Kind: CommandPending, ID: id, DeviceID: deviceID, Action: a, Posted: time.Now()}
}

// Inquiry builds an InquiryPending exchange and returns the channel its answer
// will be delivered on. The channel receives exactly one value.
func Inquiry(id uint64, deviceID uuid.UUID) (Exchange, <-chan Answer) {
	reply := make(chan Answer, 1)
	ex := Exchange{Kind: InquiryPending, ID: id, DeviceID: deviceID, Posted: time.Now(), reply: reply, withdrawn: new(atomic.Bool)}
	return ex, reply
}

// Mailbox is a mutex-guarded single slot. The zero value is not usable; call New.
type Mailbox struct {
	mu     sync.Mutex
	slot   Exchange
	nextID atomic.Uint64
}

// New returns an idle mailbox.
func New() *Mailbox {
	return &Mailbox{}
}

// NextID allocates a correlation id. Ids start at 1 and increase monotonically.
func (m *Mailbox) NextID() uint64 {
	return m.nextID.Add(1)
}

// Publish replaces the slot and returns the value it discarded (Kind Idle if
// nothing was pending). An overwritten unanswered inquiry is resolved with
// ErrSuperseded.
func (m *Mailbox) Publish(ex Exchange) Exchange {
	m.mu.Lock()
	discarded := m.slot
	m.slot = ex
	m.mu.Unlock()

	if discarded.Kind == InquiryPending {
		deliver(discarded, Answer{ID: discarded.ID, Err: ErrSuperseded})
	}
	return discarded
}

// PublishIfIdle stores ex only when the slot is empty.
func (m *Mailbox) PublishIfIdle(ex Exchange) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.slot.Kind != Idle {
		return false
	}
	m.slot = ex
	return true
}

// TakeIf removes and returns the slot value when match accepts it.
// match runs under the lock and must not block.
func (m *Mailbox) TakeIf(match func(Exchange) bool) (Exchange, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.slot.Kind == Idle || !match(m.slot) {
		return Exchange{}, false
	}
	ex := m.slot
	m.slot = Exchange{}
	return ex, true
}

// Peek returns a copy of the slot without changing it.
func (m *Mailbox) Peek() Exchange {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slot
}

// Withdraw is called by an asker that stopped waiting. It removes the inquiry
// or its answer from the slot, and a later Resolve will not post one.
func (m *Mailbox) Withdraw(inquiry Exchange) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if inquiry.withdrawn != nil {
		inquiry.withdrawn.Store(true)
	}
	if m.slot.Kind != Idle && Owned(inquiry.ID)(m.slot) {
		m.slot = Exchange{}
	}
}

// Resolve completes an inquiry taken from the slot: the answer goes to the
// waiting goroutine and, when the slot is idle and the asker has not
// withdrawn, is also posted as InquiryAnswered for the asker to collect.
func (m *Mailbox) Resolve(inquiry Exchange, level int, err error) {
	m.mu.Lock()
	if m.slot.Kind == Idle && (inquiry.withdrawn == nil || !inquiry.withdrawn.Load()) {
		m.slot = Exchange{
			Kind:     InquiryAnswered,
			ID:       inquiry.ID,
			DeviceID: inquiry.DeviceID,
			Level:    level,
			Err:      err,
			Posted:   time.Now(),
		}
	}
	m.mu.Unlock()

	// posted before delivery so a woken asker always finds its answer in the slot
	deliver(inquiry, Answer{ID: inquiry.ID, Level: level, Err: err})
}

// deliver never blocks: the reply channel has room for one answer and only
// the first delivery wins.
func deliver(ex Exchange, ans Answer) {
	if ex.reply == nil {
		return
	}
	select {
	case ex.reply <- ans:
	default:
	}
}

// Is matches any exchange of the given kind.
func Is(kind Kind) func(Exchange) bool {
	return func(ex Exchange) bool { return ex.Kind == kind }
}

// AnswerFor matches the answer to inquiry id.
func AnswerFor(id uint64) func(Exchange) bool {
	return func(ex Exchange) bool { return ex.Kind == InquiryAnswered && ex.ID == id }
}

// InquiryFor matches the still pending inquiry id.
func InquiryFor(id uint64) func(Exchange) bool {
	return func(ex Exchange) bool { return ex.Kind == InquiryPending && ex.ID == id }
}

// Owned matches the pending inquiry id or its answer.
func Owned(id uint64) func(Exchange) bool {
	return func(ex Exchange) bool {
		return ex.ID == id && (ex.Kind == InquiryPending || ex.Kind == InquiryAnswered)
	}
}
