package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	mockengine "github.com/kinware/redux-first-router/internal/engine/mock"
	"github.com/kinware/redux-first-router/internal/ir"
	"github.com/kinware/redux-first-router/internal/location"
)

func TestMemoryDriver_PushReplaceGo(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDriver(locs("/a", "/b", "/c"), 0)

	require.NoError(t, d.PushState(ctx, ir.Location{URL: "/d"}, "/d"))
	assert.Equal(t, []string{"/a", "/d"}, d.URLs())
	assert.Equal(t, 1, d.Index())

	require.NoError(t, d.ReplaceState(ctx, ir.Location{URL: "/e"}, "/e"))
	assert.Equal(t, []string{"/a", "/e"}, d.URLs())

	require.NoError(t, d.Go(ctx, -1, ir.Location{URL: "/a"}))
	assert.Equal(t, 0, d.Index())

	assert.Equal(t, []DriverCall{
		{Method: "push", URL: "/d", Href: "/d"},
		{Method: "replace", URL: "/e", Href: "/e"},
		{Method: "go", URL: "/a", Delta: -1},
	}, d.Calls())
}

func TestMemoryDriver_GoOutOfRange(t *testing.T) {
	d := NewMemoryDriver(locs("/a", "/b"), 1)

	err := d.Go(context.Background(), 1, ir.Location{URL: "/x"})
	require.Error(t, err)
	assert.Equal(t, 1, d.Index())
	assert.Equal(t, []string{"/a", "/b"}, d.URLs())
}

func TestMemoryDriver_EmptyStartsBeforeFirstEntry(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDriver(nil, 0)
	assert.Equal(t, -1, d.Index())

	require.NoError(t, d.ReplaceState(ctx, ir.Location{URL: "/a"}, "/a"))
	assert.Equal(t, 0, d.Index())
	assert.Equal(t, []string{"/a"}, d.URLs())
}

func TestMemoryDriver_LatencyHonoursContext(t *testing.T) {
	d := NewMemoryDriver(locs("/a", "/b"), 1).WithLatency(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := d.Go(ctx, -1, ir.Location{URL: "/a"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, d.Index())
}

func TestStore_JumpAppliesOnlyAfterGoResolves(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	driver := mockengine.NewMockDriver(ctrl)

	var s *Store
	driver.EXPECT().
		Go(gomock.Any(), -1, gomock.Any()).
		DoAndReturn(func(_ context.Context, n int, loc ir.Location) error {
			assert.Equal(t, 1, s.Index(), "live state untouched during Go")
			assert.Equal(t, ir.KindLoad, s.Kind())
			assert.Equal(t, "/a", loc.URL)
			return nil
		}).
		Times(1)

	s = newTestStore(t, 1, []string{"/a", "/b"}, WithDriver(driver))

	tr, err := s.Back(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, tr.Err())
	assert.Equal(t, 0, s.Index())
}

func TestStore_DriverFailureLeavesStateUnchanged(t *testing.T) {
	hostErr := errors.New("host rejected")

	tests := []struct {
		name   string
		stubs  func(d *mockengine.MockDriver)
		action func(ctx context.Context, s *Store) (*Transition, error)
	}{
		{
			name: "push",
			stubs: func(d *mockengine.MockDriver) {
				d.EXPECT().PushState(gomock.Any(), gomock.Any(), "/app/b").Return(hostErr).Times(1)
			},
			action: func(ctx context.Context, s *Store) (*Transition, error) {
				return s.Push(ctx, "/b", nil)
			},
		},
		{
			name: "redirect",
			stubs: func(d *mockengine.MockDriver) {
				d.EXPECT().ReplaceState(gomock.Any(), gomock.Any(), "/app/b").Return(hostErr).Times(1)
			},
			action: func(ctx context.Context, s *Store) (*Transition, error) {
				return s.Redirect(ctx, "/b", nil)
			},
		},
		{
			name: "jump",
			stubs: func(d *mockengine.MockDriver) {
				d.EXPECT().Go(gomock.Any(), 0, gomock.Any()).Return(hostErr).Times(1)
			},
			action: func(ctx context.Context, s *Store) (*Transition, error) {
				return s.Jump(ctx, 0, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			ctrl := gomock.NewController(t)
			driver := mockengine.NewMockDriver(ctrl)
			tt.stubs(driver)

			saves := 0
			f := location.MustNewFactory(4)
			s, err := New(Config{
				Index:    0,
				Entries:  seedEntries(f, []string{"/a"}),
				Basename: "app",
				Save:     func(*Store) error { saves++; return nil },
			}, WithLocations(f), WithDriver(driver), WithKeys(NewFixedGenerator("k1")))
			require.NoError(t, err)
			deferAll(s)

			tr, err := tt.action(ctx, s)
			require.NoError(t, err)

			err = tr.Commit(ctx)
			assert.ErrorIs(t, err, hostErr)
			assert.Equal(t, OutcomeFailed, tr.Outcome())
			assert.ErrorIs(t, tr.Err(), hostErr)

			assert.Equal(t, []string{"/a"}, s.Snapshot().URLs())
			assert.Equal(t, ir.KindLoad, s.Kind())
			assert.Zero(t, saves)
		})
	}
}

func TestStore_CommitHonoursCancelledContext(t *testing.T) {
	f := location.MustNewFactory(4)
	entries := seedEntries(f, []string{"/a", "/b"})
	driver := NewMemoryDriver(entries, 1).WithLatency(time.Hour)

	s, err := New(Config{Index: 1, Entries: entries}, WithLocations(f), WithDriver(driver))
	require.NoError(t, err)
	deferAll(s)

	tr, err := s.Back(context.Background(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = tr.Commit(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, s.Index())
	assert.Equal(t, 1, driver.Index())
}
