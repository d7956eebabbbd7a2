package wireless

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/vanhub/pkg/action"
	"github.com/urmzd/vanhub/pkg/device"
	"github.com/urmzd/vanhub/pkg/dispatch"
	"github.com/urmzd/vanhub/pkg/mailbox"
)

type fakeExecutor struct {
	mu     sync.Mutex
	sent   []action.Action
	levels map[uuid.UUID]int
}

func (f *fakeExecutor) Send(ctx context.Context, d device.Device, a action.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, a)
	return nil
}

func (f *fakeExecutor) Status(ctx context.Context, d device.Device) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lvl, ok := f.levels[d.ID]
	if !ok {
		return 0, device.ErrUnreachable
	}
	return lvl, nil
}

func (f *fakeExecutor) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type harness struct {
	box     *mailbox.Mailbox
	reg     *device.Registry
	exec    *fakeExecutor
	intake  *dispatch.Intake
	adapter *Adapter
}

func newHarness(t *testing.T, timeout time.Duration, running bool) *harness {
	t.Helper()
	reg := testRegistry(t)
	box := mailbox.New()
	exec := &fakeExecutor{levels: map[uuid.UUID]int{livingID: 4}}
	intake := dispatch.NewIntake(box, reg, timeout, nil)

	if running {
		disp := dispatch.New(box, reg, exec, dispatch.Options{Tick: time.Millisecond})
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = disp.Run(ctx)
		}()
		t.Cleanup(func() {
			cancel()
			<-done
		})
	}

	return &harness{box: box, reg: reg, exec: exec, intake: intake, adapter: NewAdapter(intake)}
}

func TestAdapter_SelectedDefaultsToFirstDevice(t *testing.T) {
	h := newHarness(t, time.Second, false)
	assert.Equal(t, livingID, h.adapter.Selected())
}

func TestAdapter_WriteSubmitsAndSelects(t *testing.T) {
	h := newHarness(t, time.Second, false)

	require.NoError(t, h.adapter.Write([]byte("bdse02")))

	ex := h.box.Peek()
	assert.Equal(t, mailbox.CommandPending, ex.Kind)
	assert.Equal(t, bedID, ex.DeviceID)
	assert.Equal(t, action.MustSet(2), ex.Action)
	assert.Equal(t, bedID, h.adapter.Selected())
}

func TestAdapter_WriteRejectsBadPayload(t *testing.T) {
	h := newHarness(t, time.Second, false)

	err := h.adapter.Write([]byte("bdse09"))
	assert.ErrorIs(t, err, action.ErrOutOfRange)
	assert.Equal(t, mailbox.Idle, h.box.Peek().Kind)
	assert.Equal(t, livingID, h.adapter.Selected(), "selection unchanged")
}

func TestAdapter_WriteIsExecuted(t *testing.T) {
	h := newHarness(t, time.Second, true)

	require.NoError(t, h.adapter.Write([]byte("living room on")))
	require.Eventually(t, func() bool { return h.exec.sentCount() == 1 }, time.Second, time.Millisecond)
}

func TestAdapter_ReadLevel(t *testing.T) {
	h := newHarness(t, time.Second, true)

	assert.Equal(t, "4", string(h.adapter.ReadLevel(context.Background())))
	assert.Equal(t, "4", string(h.adapter.CachedLevel()), "successful read refreshes the cache")
}

func TestAdapter_ReadLevelFallsBackOnTimeout(t *testing.T) {
	h := newHarness(t, 10*time.Millisecond, false)
	require.NoError(t, h.reg.SetLevel(livingID, 6))

	assert.Equal(t, "6", string(h.adapter.ReadLevel(context.Background())))
}

func TestAdapter_ReadLevelUnknownIsZero(t *testing.T) {
	h := newHarness(t, time.Second, true)
	require.NoError(t, h.adapter.Write([]byte("bdon")))

	// bed is unreachable and has never reported
	assert.Equal(t, "0", string(h.adapter.ReadLevel(context.Background())))
}

func TestAdapter_ReadLevels(t *testing.T) {
	h := newHarness(t, time.Second, true)
	require.NoError(t, h.reg.SetLevel(bedID, 7))

	assert.Equal(t, "47", string(h.adapter.ReadLevels(context.Background())))
}

func TestAdapter_CachedLevels(t *testing.T) {
	h := newHarness(t, time.Second, false)
	assert.Equal(t, "00", string(h.adapter.CachedLevels()))

	require.NoError(t, h.reg.SetLevel(livingID, 5))
	require.NoError(t, h.reg.SetLevel(bedID, 2))
	assert.Equal(t, "52", string(h.adapter.CachedLevels()))
}

func TestAdapter_LevelNotificationsKeepPendingCommand(t *testing.T) {
	h := newHarness(t, time.Second, false)
	require.NoError(t, h.reg.SetLevel(livingID, 4))
	require.NoError(t, h.adapter.Write([]byte("bdon")))

	ctx, cancel := context.WithCancel(context.Background())
	writes := 0
	notifyLoop(ctx, time.Millisecond, h.adapter.CachedLevels, func(b []byte) error {
		assert.Equal(t, "40", string(b))
		writes++
		if writes == 5 {
			cancel()
		}
		return nil
	})
	require.Equal(t, 5, writes)

	ex := h.box.Peek()
	require.Equal(t, mailbox.CommandPending, ex.Kind)
	assert.Equal(t, bedID, ex.DeviceID)

	dispatch.New(h.box, h.reg, h.exec, dispatch.Options{}).Tick(context.Background())
	assert.Equal(t, 1, h.exec.sentCount())
}

func TestNotifyLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu     sync.Mutex
		writes int
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		notifyLoop(ctx, time.Millisecond, func() []byte { return []byte("3") }, func(b []byte) error {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, "3", string(b))
			writes++
			return nil
		})
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return writes >= 3
	}, time.Second, time.Millisecond)

	cancel()
	<-done
}

func TestNotifyLoop_StopsOnWriteError(t *testing.T) {
	calls := 0
	notifyLoop(context.Background(), time.Millisecond, func() []byte { return nil }, func([]byte) error {
		calls++
		return errors.New("central went away")
	})
	assert.Equal(t, 1, calls)
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, DefaultLocalName, o.LocalName)
	assert.Equal(t, DefaultNotifyInterval, o.NotifyInterval)

	o = Options{LocalName: "a-very-long-advertised-name-for-the-van"}.withDefaults()
	assert.Len(t, o.LocalName, maxAdvertisedName)
}
