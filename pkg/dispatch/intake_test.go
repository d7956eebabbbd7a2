package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/vanhub/pkg/action"
	"github.com/urmzd/vanhub/pkg/device"
	"github.com/urmzd/vanhub/pkg/mailbox"
)

func TestSubmit_UnknownDevice(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.intake.Submit(uuid.New(), action.On())
	assert.ErrorIs(t, err, device.ErrNotFound)
	assert.Equal(t, mailbox.Idle, f.box.Peek().Kind, "nothing is published for an unknown device")
}

func TestSubmit_InvalidAction(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.intake.Submit(bedID, action.Action{})
	assert.ErrorIs(t, err, action.ErrParse)
}

func TestSubmit_ReceiptIsLocalCopy(t *testing.T) {
	f := newFixture(t, Options{})
	f.exec.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	rcpt, err := f.intake.Submit(porchID, action.MustSet(2))
	require.NoError(t, err)

	// the dispatcher clears the slot; the receipt still describes the request
	f.disp.Tick(context.Background())
	assert.Equal(t, mailbox.Idle, f.box.Peek().Kind)

	assert.Equal(t, porchID, rcpt.DeviceID)
	assert.Equal(t, "porch light", rcpt.Device)
	assert.Equal(t, action.MustSet(2), rcpt.Action)
	assert.NotZero(t, rcpt.ID)
	assert.False(t, rcpt.Accepted.IsZero())
}

func TestSubmit_LatestCommandWins(t *testing.T) {
	f := newFixture(t, Options{})
	f.exec.On("Send", mock.Anything, isDevice(bedID), action.Off()).Return(nil).Once()

	_, _ = f.intake.Submit(bedID, action.On())
	_, _ = f.intake.Submit(bedID, action.Off())
	f.disp.Tick(context.Background())

	f.exec.AssertExpectations(t)
	f.exec.AssertNumberOfCalls(t, "Send", 1)
}

// runDispatcher ticks until the test ends.
func runDispatcher(t *testing.T, f *fixture) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				f.disp.Tick(ctx)
			}
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestInquire_Answered(t *testing.T) {
	f := newFixture(t, Options{})
	f.exec.On("Status", mock.Anything, isDevice(bedID)).Return(5, nil)
	runDispatcher(t, f)

	r, err := f.intake.Inquire(context.Background(), bedID)
	require.NoError(t, err)
	assert.Equal(t, 5, r.Level)
	assert.True(t, r.Known)
	assert.False(t, r.Stale)

	require.Eventually(t, func() bool { return f.box.Peek().Kind == mailbox.Idle }, time.Second, time.Millisecond,
		"the asker collects its answer")
}

func TestInquire_TimeoutFallsBackToLastKnown(t *testing.T) {
	f := newFixture(t, Options{})
	f.intake = NewIntake(f.box, f.registry, 20*time.Millisecond, nil)
	require.NoError(t, f.registry.SetLevel(bedID, 3))

	// no dispatcher running
	start := time.Now()
	r, err := f.intake.Inquire(context.Background(), bedID)

	assert.ErrorIs(t, err, ErrInquiryTimeout)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 3, r.Level)
	assert.True(t, r.Known)
	assert.True(t, r.Stale)
	assert.Equal(t, mailbox.Idle, f.box.Peek().Kind, "timed out inquiry is withdrawn")
}

func TestInquire_AbandonedDuringStatusLeavesSlotIdle(t *testing.T) {
	f := newFixture(t, Options{})
	entered := make(chan struct{})
	release := make(chan struct{})
	f.exec.On("Status", mock.Anything, isDevice(bedID)).Run(func(mock.Arguments) {
		close(entered)
		<-release
	}).Return(5, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	asked := make(chan error, 1)
	go func() {
		_, err := f.intake.Inquire(ctx, bedID)
		asked <- err
	}()
	require.Eventually(t, func() bool { return f.box.Peek().Kind == mailbox.InquiryPending }, time.Second, time.Millisecond)

	ticked := make(chan struct{})
	go func() {
		defer close(ticked)
		f.disp.Tick(context.Background())
	}()
	<-entered

	cancel()
	assert.ErrorIs(t, <-asked, context.Canceled)

	close(release)
	<-ticked

	assert.Equal(t, mailbox.Idle, f.box.Peek().Kind, "late answer is not left behind")
	lvl, ok := f.registry.Level(bedID)
	assert.True(t, ok)
	assert.Equal(t, 5, lvl)
}

func TestInquire_TimeoutUnknownLevelIsZero(t *testing.T) {
	f := newFixture(t, Options{})
	f.intake = NewIntake(f.box, f.registry, 10*time.Millisecond, nil)

	r, err := f.intake.Inquire(context.Background(), porchID)
	assert.ErrorIs(t, err, ErrInquiryTimeout)
	assert.Equal(t, 0, r.Level)
	assert.False(t, r.Known)
}

func TestInquire_CallerCancel(t *testing.T) {
	f := newFixture(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.intake.Inquire(ctx, bedID)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, mailbox.Idle, f.box.Peek().Kind)
}

func TestInquire_DeviceFailure(t *testing.T) {
	f := newFixture(t, Options{})
	f.exec.On("Status", mock.Anything, mock.Anything).Return(0, device.ErrUnreachable)
	require.NoError(t, f.registry.SetLevel(bedID, 2))
	runDispatcher(t, f)

	r, err := f.intake.Inquire(context.Background(), bedID)
	assert.ErrorIs(t, err, device.ErrUnreachable)
	assert.Equal(t, 2, r.Level)
	assert.True(t, r.Stale)
}

func TestInquire_UnknownDevice(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.intake.Inquire(context.Background(), uuid.New())
	assert.ErrorIs(t, err, device.ErrNotFound)
}

func TestInquire_SupersededByCommand(t *testing.T) {
	f := newFixture(t, Options{})

	var (
		wg  sync.WaitGroup
		err error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err = f.intake.Inquire(context.Background(), bedID)
	}()

	require.Eventually(t, func() bool { return f.box.Peek().Kind == mailbox.InquiryPending }, time.Second, time.Millisecond)
	_, subErr := f.intake.Submit(bedID, action.On())
	require.NoError(t, subErr)

	wg.Wait()
	assert.ErrorIs(t, err, mailbox.ErrSuperseded)
	assert.Equal(t, mailbox.CommandPending, f.box.Peek().Kind, "the command survives")
}

func TestInquire_ConcurrentAskersEachGetAnAnswer(t *testing.T) {
	f := newFixture(t, Options{})
	f.exec.On("Status", mock.Anything, isDevice(bedID)).Return(1, nil)
	f.exec.On("Status", mock.Anything, isDevice(porchID)).Return(7, nil)
	runDispatcher(t, f)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		id, want := bedID, 1
		if i%2 == 1 {
			id, want = porchID, 7
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := f.intake.Inquire(context.Background(), id)
			if err != nil {
				// a concurrent asker may overwrite this one
				assert.ErrorIs(t, err, mailbox.ErrSuperseded)
				return
			}
			assert.Equal(t, want, r.Level, "answer belongs to the asked device")
		}()
	}
	wg.Wait()
}

func TestInquireAll(t *testing.T) {
	f := newFixture(t, Options{})
	f.exec.On("Status", mock.Anything, isDevice(bedID)).Return(4, nil)
	f.exec.On("Status", mock.Anything, isDevice(porchID)).Return(0, device.ErrUnreachable)
	require.NoError(t, f.registry.SetLevel(porchID, 6))
	runDispatcher(t, f)

	readings, err := f.intake.InquireAll(context.Background(), []uuid.UUID{bedID, porchID})
	assert.ErrorIs(t, err, device.ErrUnreachable)
	require.Len(t, readings, 2)
	assert.Equal(t, 4, readings[0].Level)
	assert.False(t, readings[0].Stale)
	assert.Equal(t, 6, readings[1].Level)
	assert.True(t, readings[1].Stale)
}

func TestLastKnown(t *testing.T) {
	f := newFixture(t, Options{})
	require.NoError(t, f.registry.SetLevel(bedID, 7))

	r, err := f.intake.LastKnown(bedID)
	require.NoError(t, err)
	assert.Equal(t, 7, r.Level)
	assert.False(t, r.Stale)
	assert.Equal(t, mailbox.Idle, f.box.Peek().Kind)
}
