package dispatch

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/vanhub/pkg/action"
	"github.com/urmzd/vanhub/pkg/device"
	"github.com/urmzd/vanhub/pkg/mailbox"
)

var (
	bedID   = uuid.MustParse("0b4f7a52-6a39-4bd6-9c52-2f1c4d9e0a11")
	porchID = uuid.MustParse("5d0c9e3b-17a4-4f0e-8d7b-3c2b1a9f8e22")
)

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Send(ctx context.Context, d device.Device, a action.Action) error {
	args := m.Called(ctx, d, a)
	return args.Error(0)
}

func (m *mockExecutor) Status(ctx context.Context, d device.Device) (int, error) {
	args := m.Called(ctx, d)
	return args.Int(0), args.Error(1)
}

type recordingObserver struct {
	levels map[string]int
}

func (o *recordingObserver) LevelChanged(ctx context.Context, d device.Device, level int) error {
	o.levels[d.Name] = level
	return nil
}

type fixture struct {
	box      *mailbox.Mailbox
	registry *device.Registry
	exec     *mockExecutor
	disp     *Dispatcher
	intake   *Intake
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	reg, err := device.NewRegistry([]device.Device{
		{ID: bedID, Name: "bed", Abbrev: "bd", Address: "10.0.0.22"},
		{ID: porchID, Name: "porch light", Abbrev: "pl", Address: "10.0.0.23"},
	})
	require.NoError(t, err)

	box := mailbox.New()
	exec := &mockExecutor{}
	return &fixture{
		box:      box,
		registry: reg,
		exec:     exec,
		disp:     New(box, reg, exec, opts),
		intake:   NewIntake(box, reg, 0, opts.Metrics),
	}
}

func isDevice(id uuid.UUID) interface{} {
	return mock.MatchedBy(func(d device.Device) bool { return d.ID == id })
}
