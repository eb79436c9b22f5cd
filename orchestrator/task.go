package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/schema"
)

// Task is one unit of capability work.
type Task struct {
	Capability schema.Capability
	Run        func(ctx context.Context) (schema.CapabilityResult, error)
}

// Outcome is the settled result of a task: exactly one of Result or Err is meaningful.
type Outcome struct {
	Capability schema.Capability
	Result     schema.CapabilityResult
	Err        error
	Elapsed    time.Duration
}

// OK reports whether the task succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// Future is a running task.
type Future struct {
	capability schema.Capability
	start      time.Time
	done       chan struct{}
	outcome    Outcome
}

// Go starts task on its own goroutine. A panic inside the task settles the
// future with an error.
func Go(ctx context.Context, task Task) *Future {
	f := &Future{capability: task.Capability, start: time.Now(), done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.outcome = Outcome{Capability: task.Capability, Err: fmt.Errorf("%s task panicked: %v", task.Capability, r), Elapsed: time.Since(f.start)}
			}
		}()
		res, err := task.Run(ctx)
		f.outcome = Outcome{Capability: task.Capability, Result: res, Err: err, Elapsed: time.Since(f.start)}
	}()
	return f
}

// Capability returns the tag of the task behind f.
func (f *Future) Capability() schema.Capability { return f.capability }

// Await blocks until the task settles or ctx ends. A task still running when
// ctx ends yields ctx.Err(); the goroutine is left to observe the same ctx.
func (f *Future) Await(ctx context.Context) Outcome {
	select {
	case <-f.done:
		return f.outcome
	case <-ctx.Done():
		select {
		case <-f.done:
			return f.outcome
		default:
		}
		return Outcome{Capability: f.capability, Err: ctx.Err(), Elapsed: time.Since(f.start)}
	}
}

// Join waits for every future and returns their outcomes in the order given.
func Join(ctx context.Context, futures ...*Future) []Outcome {
	out := make([]Outcome, 0, len(futures))
	for _, f := range futures {
		out = append(out, f.Await(ctx))
	}
	return out
}
