package device

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/vanhub/pkg/action"
)

func testDevices() []Device {
	return []Device{
		{ID: uuid.MustParse("0b4f7a52-6a39-4bd6-9c52-2f1c4d9e0a11"), Name: "Living Room", Abbrev: "LR", Address: "10.0.0.21"},
		{ID: uuid.MustParse("5d0c9e3b-17a4-4f0e-8d7b-3c2b1a9f8e22"), Name: "bed", Abbrev: "bd", Address: "10.0.0.22:8080"},
	}
}

func TestNewRegistry_Normalizes(t *testing.T) {
	r, err := NewRegistry(testDevices())
	require.NoError(t, err)
	require.Equal(t, 2, r.Len())

	devs := r.Devices()
	assert.Equal(t, "living room", devs[0].Name)
	assert.Equal(t, "lr", devs[0].Abbrev)
	assert.Equal(t, "bed", devs[1].Name)
}

func TestNewRegistry_RejectsDuplicates(t *testing.T) {
	devs := testDevices()
	devs[1].Abbrev = "lr"
	_, err := NewRegistry(devs)
	assert.ErrorIs(t, err, ErrDuplicate)

	devs = testDevices()
	devs[1].Name = "LIVING  room"
	_, err = NewRegistry(devs)
	assert.ErrorIs(t, err, ErrDuplicate)

	devs = testDevices()
	devs[1].ID = devs[0].ID
	_, err = NewRegistry(devs)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestNewRegistry_RejectsMalformed(t *testing.T) {
	devs := testDevices()
	devs[0].Abbrev = "lrx"
	_, err := NewRegistry(devs)
	assert.Error(t, err)

	devs = testDevices()
	devs[0].ID = uuid.Nil
	_, err = NewRegistry(devs)
	assert.Error(t, err)
}

func TestRegistry_Lookups(t *testing.T) {
	r, err := NewRegistry(testDevices())
	require.NoError(t, err)
	want := r.Devices()[0]

	d, err := r.ByName("LIVING ROOM")
	require.NoError(t, err)
	assert.Equal(t, want, d)

	d, err = r.ByAbbrev("Lr")
	require.NoError(t, err)
	assert.Equal(t, want, d)

	for _, ref := range []string{want.ID.String(), "living room", "lr"} {
		d, err = r.Resolve(ref)
		require.NoError(t, err, ref)
		assert.Equal(t, want, d)
	}

	_, err = r.Resolve("kitchen")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.Get(uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_Levels(t *testing.T) {
	r, err := NewRegistry(testDevices())
	require.NoError(t, err)
	id := r.Devices()[1].ID

	_, ok := r.Level(id)
	assert.False(t, ok, "level starts unknown")

	require.NoError(t, r.SetLevel(id, 5))
	lvl, ok := r.Level(id)
	assert.True(t, ok)
	assert.Equal(t, 5, lvl)

	st, err := r.Status(id)
	require.NoError(t, err)
	assert.True(t, st.Known)
	assert.Equal(t, 5, st.Level)

	assert.ErrorIs(t, r.SetLevel(id, action.MaxLevel), action.ErrOutOfRange)
	assert.ErrorIs(t, r.SetLevel(uuid.New(), 1), ErrNotFound)
}

func TestRegistry_ConcurrentLevelUpdates(t *testing.T) {
	r, err := NewRegistry(testDevices())
	require.NoError(t, err)
	id := r.Devices()[0].ID

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(lvl int) {
			defer wg.Done()
			_ = r.SetLevel(id, lvl%action.MaxLevel)
		}(i)
		go func() {
			defer wg.Done()
			_ = r.Statuses()
		}()
	}
	wg.Wait()

	lvl, ok := r.Level(id)
	assert.True(t, ok)
	assert.GreaterOrEqual(t, lvl, 0)
	assert.Less(t, lvl, action.MaxLevel)
}
