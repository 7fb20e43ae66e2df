package scheduler

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler() *Scheduler {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestScheduler_Schedule(t *testing.T) {
	t.Run("Advances synchronously to first suspension", func(t *testing.T) {
		// Given: a scheduler and a task that records each step
		sched := newTestScheduler()
		var trace []string

		// When: the task is scheduled
		sched.Schedule(nil,
			func() Instruction {
				trace = append(trace, "first")
				return Wait(50 * time.Millisecond)
			},
			func() Instruction {
				trace = append(trace, "second")
				return nil
			},
		)

		// Then: the first step already ran, the second has not
		require.Equal(t, []string{"first"}, trace)
	})

	t.Run("Task scheduled during a tick only runs on the next tick", func(t *testing.T) {
		// Given: a task that schedules another task from inside a tick
		sched := newTestScheduler()
		var trace []string

		sched.Schedule(nil,
			func() Instruction { return nil },
			func() Instruction {
				sched.Schedule(nil,
					func() Instruction {
						trace = append(trace, "inner start")
						return nil
					},
					func() Instruction {
						trace = append(trace, "inner resumed")
						return nil
					},
				)
				return nil
			},
		)

		// When: the outer task runs its scheduling step
		sched.Tick(10 * time.Millisecond)

		// Then: the inner task advanced to its first suspension but was
		// not resumed within the same tick
		require.Equal(t, []string{"inner start"}, trace)

		// When: the next tick runs
		sched.Tick(10 * time.Millisecond)

		// Then: the inner task resumed
		require.Equal(t, []string{"inner start", "inner resumed"}, trace)
	})
}

func TestScheduler_Tick(t *testing.T) {
	t.Run("Timed wait elapses across ticks", func(t *testing.T) {
		// Given: a task waiting 50ms
		sched := newTestScheduler()
		resumed := false

		sched.Schedule(nil,
			func() Instruction { return Wait(50 * time.Millisecond) },
			func() Instruction {
				resumed = true
				return nil
			},
		)

		// When: two ticks pass 40ms of simulated time
		sched.Tick(20 * time.Millisecond)
		sched.Tick(20 * time.Millisecond)

		// Then: the wait has not elapsed yet
		require.False(t, resumed)

		// When: a third tick pushes the elapsed time past the wait
		sched.Tick(20 * time.Millisecond)

		// Then: the task resumed and completed
		require.True(t, resumed)
		require.Equal(t, 0, sched.Len())
	})

	t.Run("Parent resumes only after nested task terminates", func(t *testing.T) {
		// Given: a parent task yielding a nested task with a timed wait
		sched := newTestScheduler()
		var trace []string

		sched.Schedule(nil,
			func() Instruction {
				trace = append(trace, "parent start")
				return Nest(
					func() Instruction {
						trace = append(trace, "child start")
						return Wait(30 * time.Millisecond)
					},
					func() Instruction {
						trace = append(trace, "child done")
						return nil
					},
				)
			},
			func() Instruction {
				trace = append(trace, "parent resumed")
				return nil
			},
		)

		// Then: the child already advanced to its own suspension
		require.Equal(t, []string{"parent start", "child start"}, trace)

		// When: a tick that does not satisfy the child's wait
		sched.Tick(10 * time.Millisecond)

		// Then: the parent is still parked
		require.NotContains(t, trace, "parent resumed")

		// When: the child's wait elapses
		sched.Tick(30 * time.Millisecond)

		// Then: the child finished and the parent resumed, in that order
		require.Equal(t, []string{"parent start", "child start", "child done", "parent resumed"}, trace)
	})
}

func TestScheduler_CancelOwner(t *testing.T) {
	t.Run("Cancelling the owner discards the nested child too", func(t *testing.T) {
		// Given: an owner with a parent task waiting on a nested child
		sched := newTestScheduler()
		owner := &struct{}{}
		var trace []string

		sched.Schedule(owner,
			func() Instruction {
				return Nest(
					func() Instruction { return Wait(time.Minute) },
					func() Instruction {
						trace = append(trace, "child done")
						return nil
					},
				)
			},
			func() Instruction {
				trace = append(trace, "parent resumed")
				return nil
			},
		)

		// When: the owner is cancelled before the child terminates
		sched.CancelOwner(owner)

		// Then: no live tasks remain and nothing fires later
		sched.Tick(time.Minute)
		sched.Tick(time.Minute)

		require.Empty(t, trace)
		require.Equal(t, 0, sched.Len())
	})

	t.Run("Cancelling an unknown owner is a no-op", func(t *testing.T) {
		sched := newTestScheduler()

		assert.NotPanics(t, func() { sched.CancelOwner("nobody") })
	})
}

func TestScheduler_Cancel(t *testing.T) {
	t.Run("Cancel is idempotent", func(t *testing.T) {
		// Given: a task parked on a long wait
		sched := newTestScheduler()
		resumed := false

		task := sched.Schedule(nil,
			func() Instruction { return Wait(time.Hour) },
			func() Instruction {
				resumed = true
				return nil
			},
		)

		// When: the task is cancelled twice
		sched.Cancel(task)
		sched.Cancel(task)

		// Then: it is done and never resumes
		sched.Tick(2 * time.Hour)

		require.True(t, task.Done())
		require.False(t, resumed)
	})

	t.Run("Cancelling a completed task is a no-op", func(t *testing.T) {
		sched := newTestScheduler()

		task := sched.Schedule(nil, func() Instruction { return nil })
		sched.Tick(time.Millisecond)
		require.True(t, task.Done())

		assert.NotPanics(t, func() { sched.Cancel(task) })
	})

	t.Run("Cancelling a nested child re-activates the parent", func(t *testing.T) {
		// Given: a parent waiting on a long-running child
		sched := newTestScheduler()
		parentResumed := false
		var child *Task

		sched.Schedule(nil,
			func() Instruction {
				return Nest(func() Instruction { return Wait(time.Hour) })
			},
			func() Instruction {
				parentResumed = true
				return nil
			},
		)

		// The only live task is the child parked on its wait.
		require.Equal(t, 1, sched.Len())

		// When: the child is found and cancelled
		for _, task := range sched.active {
			child = task
		}
		sched.Cancel(child)

		// Then: termination of the child resumed the parent
		require.True(t, parentResumed)
	})
}
