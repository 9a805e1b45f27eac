// Package drivertest provides a scripted in-memory Driver for tests. It
// records every page operation and can be told to fail specific selectors a
// fixed number of times, which is how the retry and partial-failure paths
// are exercised without a browser.
package drivertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/calcforge/calcforge/internal/driver"
)

// Call records one page operation.
type Call struct {
	Op       string
	Selector string
	Value    string
}

// Driver is a scripted driver.Driver. The zero value is usable.
type Driver struct {
	mu sync.Mutex

	calls    []Call
	failures map[string]int
	fatals   map[string]bool
	values   map[string]string
	location string
	closed   bool
	lost     bool
}

var _ driver.Driver = (*Driver)(nil)

// New returns an empty scripted driver.
func New() *Driver {
	return &Driver{
		failures: make(map[string]int),
		fatals:   make(map[string]bool),
		values:   make(map[string]string),
	}
}

// FailTimes makes the next n operations touching selector fail.
func (d *Driver) FailTimes(selector string, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[selector] = n
}

// FailFatal makes every operation touching selector fail with
// ErrSessionLost, as if the browser died under that operation.
func (d *Driver) FailFatal(selector string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fatals[selector] = true
}

// SetValue sets the value returned by Value for a selector.
func (d *Driver) SetValue(selector, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values[selector] = value
}

// SetLocation sets the URL returned by Location.
func (d *Driver) SetLocation(url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.location = url
}

// LoseSession makes every subsequent operation fail with ErrSessionLost.
func (d *Driver) LoseSession() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lost = true
}

// Calls returns a copy of all recorded operations.
func (d *Driver) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// CallsFor returns the recorded operations touching the given selector.
func (d *Driver) CallsFor(selector string) []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Call
	for _, c := range d.calls {
		if c.Selector == selector {
			out = append(out, c)
		}
	}
	return out
}

// Closed reports whether Close was called.
func (d *Driver) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *Driver) record(ctx context.Context, op, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lost {
		return fmt.Errorf("%w: scripted loss", driver.ErrSessionLost)
	}

	d.calls = append(d.calls, Call{Op: op, Selector: selector, Value: value})

	if d.fatals[selector] {
		d.lost = true
		return fmt.Errorf("%w: scripted loss at %q", driver.ErrSessionLost, selector)
	}
	if n, ok := d.failures[selector]; ok && n > 0 {
		d.failures[selector] = n - 1
		return fmt.Errorf("scripted failure for %q (%s)", selector, op)
	}
	return nil
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := d.record(ctx, "navigate", url, ""); err != nil {
		return err
	}
	d.mu.Lock()
	d.location = url
	d.mu.Unlock()
	return nil
}

func (d *Driver) Click(ctx context.Context, selector string) error {
	return d.record(ctx, "click", selector, "")
}

func (d *Driver) Fill(ctx context.Context, selector, value string) error {
	return d.record(ctx, "fill", selector, value)
}

func (d *Driver) SetChecked(ctx context.Context, selector string, checked bool) error {
	return d.record(ctx, "check", selector, fmt.Sprintf("%t", checked))
}

func (d *Driver) WaitVisible(ctx context.Context, selector string) error {
	return d.record(ctx, "wait", selector, "")
}

func (d *Driver) Value(ctx context.Context, selector string) (string, error) {
	if err := d.record(ctx, "value", selector, ""); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.values[selector], nil
}

func (d *Driver) Location(ctx context.Context) (string, error) {
	if err := d.record(ctx, "location", "", ""); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.location, nil
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}
