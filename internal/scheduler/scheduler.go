// Package scheduler advances cooperative tasks once per tick from a single
// driver goroutine. A task is a sequence of steps; each step runs to
// completion and returns an instruction telling the scheduler how to suspend:
// wait a duration, wait for a nested task, or just yield until the next tick.
package scheduler

import (
	"log/slog"
	"time"
)

// Instruction is what a step returns to suspend its task. A nil Instruction
// suspends until the next tick.
type Instruction interface {
	isInstruction()
}

type waitInstruction struct {
	duration time.Duration
}

func (waitInstruction) isInstruction() {}

// Wait suspends the task for at least the given duration.
func Wait(d time.Duration) Instruction {
	return waitInstruction{duration: d}
}

type nestInstruction struct {
	steps []Step
}

func (nestInstruction) isInstruction() {}

// Nest suspends the task until a nested task, built from the given steps and
// registered under the same owner, terminates.
func Nest(steps ...Step) Instruction {
	return nestInstruction{steps: steps}
}

// Step is one resumable unit of a task body.
type Step func() Instruction

type taskState int

const (
	stateRunning taskState = iota
	stateTimedWait
	stateWaitingChild
	stateDone
)

// Task is the handle returned by Schedule. It is owned by the scheduler;
// callers only pass it back to Cancel.
type Task struct {
	steps     []Step
	next      int
	state     taskState
	remaining time.Duration
	child     *Task
	parent    *Task
	owner     any
	queued    bool
}

// Done reports whether the task has terminated (completed or cancelled).
func (that *Task) Done() bool {
	return that.state == stateDone
}

// Scheduler drives tasks. All methods must be called from the single control
// goroutine; mutations during a tick are buffered and merged at tick
// boundaries so iteration is never invalidated mid-tick.
type Scheduler struct {
	logger  *slog.Logger
	active  []*Task
	pending []*Task
	owners  map[any]map[*Task]struct{}
	ticking bool
}

func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		logger: logger.With("component", "scheduler"),
		owners: make(map[any]map[*Task]struct{}),
	}
}

// Schedule registers a task under owner (nil for an untracked task) and
// advances it synchronously to its first suspension point. A task scheduled
// while a tick is in progress only joins the active set on the next tick.
func (that *Scheduler) Schedule(owner any, steps ...Step) *Task {
	task := &Task{steps: steps, owner: owner}

	if owner != nil {
		set, ok := that.owners[owner]
		if !ok {
			set = make(map[*Task]struct{})
			that.owners[owner] = set
		}
		set[task] = struct{}{}
	}

	that.advance(task)

	if task.state == stateRunning || task.state == stateTimedWait {
		that.enqueue(task)
	}

	return task
}

// Tick advances every active task whose suspension has been satisfied.
// delta is the time elapsed since the previous tick.
func (that *Scheduler) Tick(delta time.Duration) {
	if len(that.pending) > 0 {
		that.active = append(that.active, that.pending...)
		that.pending = nil
	}

	that.ticking = true

	for _, task := range that.active {
		switch task.state {
		case stateDone, stateWaitingChild:
			continue
		case stateTimedWait:
			task.remaining -= delta
			if task.remaining > 0 {
				continue
			}
			task.state = stateRunning
		case stateRunning:
		}

		that.advance(task)
	}

	that.ticking = false

	kept := that.active[:0]
	for _, task := range that.active {
		if task.state == stateRunning || task.state == stateTimedWait {
			kept = append(kept, task)
		} else {
			task.queued = false
		}
	}
	that.active = kept
}

// Cancel terminates a task and every task nested under it. Cancelling an
// already-terminated task is a no-op. If the task was nested, its parent is
// re-activated, same as on normal completion.
func (that *Scheduler) Cancel(task *Task) {
	if task == nil || task.state == stateDone {
		return
	}

	that.terminate(task)

	that.reactivateParent(task)
}

// CancelOwner terminates every task registered under owner, including tasks
// nested under them. No parent is re-activated: nested tasks share the
// owner, so the whole family goes at once.
func (that *Scheduler) CancelOwner(owner any) {
	set, ok := that.owners[owner]
	if !ok {
		return
	}

	cancelled := 0
	for task := range set {
		if task.state != stateDone {
			that.terminate(task)
			cancelled++
		}
	}

	delete(that.owners, owner)

	if cancelled > 0 {
		that.logger.Debug("cancelled owner tasks", "tasks", cancelled)
	}
}

// Len reports the number of live tasks, for diagnostics.
func (that *Scheduler) Len() int {
	count := 0
	for _, task := range that.active {
		if task.state != stateDone {
			count++
		}
	}
	for _, task := range that.pending {
		if task.state != stateDone {
			count++
		}
	}
	return count
}

// advance resumes a task: runs its next step and applies the returned
// instruction. Runs at most one step per resume; a step returning nil leaves
// the task running, to be resumed again on the following tick.
func (that *Scheduler) advance(task *Task) {
	if task.next >= len(task.steps) {
		that.finish(task)
		return
	}

	instruction := task.steps[task.next]()
	task.next++

	switch instr := instruction.(type) {
	case nil:
		if task.next >= len(task.steps) {
			that.finish(task)
		}
	case waitInstruction:
		task.state = stateTimedWait
		task.remaining = instr.duration
	case nestInstruction:
		task.state = stateWaitingChild
		child := that.Schedule(task.owner, instr.steps...)
		if child.state == stateDone {
			// Child ran to completion before the parent link existed;
			// resume the parent directly.
			task.state = stateRunning
			that.advance(task)
			return
		}
		task.child = child
		child.parent = task
	}
}

// finish marks a task terminated and resumes its parent, if any, exactly once.
func (that *Scheduler) finish(task *Task) {
	task.state = stateDone
	that.release(task)
	that.reactivateParent(task)
}

// terminate marks a task and its nested subtree done without resuming anyone.
func (that *Scheduler) terminate(task *Task) {
	task.state = stateDone
	that.release(task)

	if task.child != nil && task.child.state != stateDone {
		that.terminate(task.child)
	}
}

func (that *Scheduler) release(task *Task) {
	if task.owner == nil {
		return
	}

	set, ok := that.owners[task.owner]
	if !ok {
		return
	}

	delete(set, task)
	if len(set) == 0 {
		delete(that.owners, task.owner)
	}
}

func (that *Scheduler) reactivateParent(task *Task) {
	parent := task.parent
	if parent == nil || parent.state != stateWaitingChild {
		return
	}

	parent.child = nil
	parent.state = stateRunning
	that.advance(parent)

	if parent.state == stateRunning || parent.state == stateTimedWait {
		that.enqueue(parent)
	}
}

func (that *Scheduler) enqueue(task *Task) {
	if task.queued {
		return
	}

	task.queued = true

	if that.ticking {
		that.pending = append(that.pending, task)
		return
	}

	that.active = append(that.active, task)
}
