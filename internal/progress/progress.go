// Package progress serializes long-running operations behind named
// progress channels and publishes their state to the event bus. A channel
// admits one task at a time; starting a second task on the same channel
// while one is running fails instead of interleaving.
package progress

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/workbench/internal/event"
)

// BusChannel is the event bus channel progress updates are published on.
const BusChannel = "progress"

// ErrBusy is returned when a task is already running on a channel.
var ErrBusy = errors.New("operation already in progress")

// Update is the payload published for every progress change.
type Update struct {
	// TaskID uniquely identifies one task run.
	TaskID string

	// Channel is the progress channel name, e.g. "plugin-install".
	Channel string

	// Status is the current human-readable status line.
	Status string

	// Args carries status interpolation arguments for the UI.
	Args []string

	// Done is true on the final update for a task.
	Done bool

	// Error is the failure message, empty on success.
	Error string
}

// Task reports progress for one running operation.
type Task struct {
	id      string
	channel string
	bus     *event.Bus
}

// ID returns the task's unique id.
func (t *Task) ID() string { return t.id }

// Status publishes a status line.
func (t *Task) Status(status string, args ...string) {
	t.bus.Publish(BusChannel, Update{
		TaskID:  t.id,
		Channel: t.channel,
		Status:  status,
		Args:    args,
	})
}

// Reporter runs tasks serialized per channel.
type Reporter struct {
	mu      sync.Mutex
	running map[string]bool
	bus     *event.Bus
}

// NewReporter creates a reporter publishing to the given bus.
func NewReporter(bus *event.Bus) *Reporter {
	return &Reporter{
		running: make(map[string]bool),
		bus:     bus,
	}
}

// Busy reports whether a task is running on the channel.
func (r *Reporter) Busy(channel string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running[channel]
}

// Run executes fn as the channel's task. If a task is already running on
// the channel, Run returns ErrBusy without calling fn. The final progress
// update (Done, with any error) is always published.
func (r *Reporter) Run(ctx context.Context, channel string, fn func(ctx context.Context, t *Task) error) error {
	r.mu.Lock()
	if r.running[channel] {
		r.mu.Unlock()
		return ErrBusy
	}
	r.running[channel] = true
	r.mu.Unlock()

	t := &Task{
		id:      uuid.New().String(),
		channel: channel,
		bus:     r.bus,
	}

	err := fn(ctx, t)

	r.mu.Lock()
	delete(r.running, channel)
	r.mu.Unlock()

	final := Update{TaskID: t.id, Channel: channel, Done: true}
	if err != nil {
		final.Error = err.Error()
	}
	r.bus.Publish(BusChannel, final)

	return err
}
