package engine

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kinware/redux-first-router/internal/ir"
)

//go:generate mockgen -package mockengine -destination mock/driver.go github.com/kinware/redux-first-router/internal/engine Driver

// Driver is the host storage a commit writes to before the store's live
// state changes: a browser history, an in-memory stack, a terminal app's
// page cache.
//
// Every method blocks until the host has applied the change. Go in
// particular may resolve asynchronously on the host side; the store only
// applies a jump once Go returns nil.
type Driver interface {
	// PushState records loc as a new entry after the host's current one.
	PushState(ctx context.Context, loc ir.Location, href string) error

	// ReplaceState overwrites the host's current entry with loc.
	ReplaceState(ctx context.Context, loc ir.Location, href string) error

	// Go moves the host cursor by n slots and stores loc at the destination.
	Go(ctx context.Context, n int, loc ir.Location) error
}

// NopDriver accepts every write. Use it when the store itself is the only
// record of navigation.
type NopDriver struct{}

func (NopDriver) PushState(context.Context, ir.Location, string) error    { return nil }
func (NopDriver) ReplaceState(context.Context, ir.Location, string) error { return nil }
func (NopDriver) Go(context.Context, int, ir.Location) error              { return nil }

// DriverCall records one call made against a MemoryDriver.
type DriverCall struct {
	Method string // "push", "replace" or "go"
	URL    string
	Href   string
	Delta  int
}

// MemoryDriver mirrors a host history in memory. It keeps its own stack and
// cursor so tests can check that the host and the store agree.
//
// Thread-safety: MemoryDriver is safe for concurrent use.
type MemoryDriver struct {
	mu      sync.Mutex
	entries []ir.Location
	index   int
	latency time.Duration
	calls   []DriverCall
}

// NewMemoryDriver creates a driver holding entries with the cursor at index.
// An empty entries slice starts with the cursor at -1.
func NewMemoryDriver(entries []ir.Location, index int) *MemoryDriver {
	if len(entries) == 0 {
		index = -1
	}
	return &MemoryDriver{entries: slices.Clone(entries), index: index}
}

// WithLatency makes Go wait d before resolving, like a host whose
// back/forward navigation completes asynchronously. It returns the driver.
func (d *MemoryDriver) WithLatency(latency time.Duration) *MemoryDriver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.latency = latency
	return d
}

// PushState implements Driver.
func (d *MemoryDriver) PushState(ctx context.Context, loc ir.Location, href string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = append(d.calls, DriverCall{Method: "push", URL: loc.URL, Href: href})
	d.entries = pushAt(d.entries, d.index+1, loc)
	d.index++
	return nil
}

// ReplaceState implements Driver.
func (d *MemoryDriver) ReplaceState(ctx context.Context, loc ir.Location, href string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = append(d.calls, DriverCall{Method: "replace", URL: loc.URL, Href: href})
	if d.index < 0 {
		d.entries = []ir.Location{loc}
		d.index = 0
		return nil
	}
	d.entries = replaceAt(d.entries, d.index, loc)
	return nil
}

// Go implements Driver. It fails if the destination is outside the host's
// stack or ctx ends before the configured latency elapses.
func (d *MemoryDriver) Go(ctx context.Context, n int, loc ir.Location) error {
	d.mu.Lock()
	latency := d.latency
	target := d.index + n
	length := len(d.entries)
	d.calls = append(d.calls, DriverCall{Method: "go", URL: loc.URL, Delta: n})
	d.mu.Unlock()

	if target < 0 || target >= length {
		return fmt.Errorf("host cannot go %d from %d (length %d)", n, target-n, length)
	}

	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.index += n
	d.entries = replaceAt(d.entries, d.index, loc)
	return nil
}

// Index returns the host cursor.
func (d *MemoryDriver) Index() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.index
}

// URLs returns the URL of every host entry.
func (d *MemoryDriver) URLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return ir.Snapshot{Entries: d.entries}.URLs()
}

// Calls returns every call made so far, oldest first.
func (d *MemoryDriver) Calls() []DriverCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.calls)
}
