// Package jobs keeps track of the interpreter's background processes.
//
// The table is owned by the interpreter's control loop and is not safe for
// concurrent use. Children change state asynchronously, which is why the
// table only ever asks about them without blocking.
package jobs

import (
	"errors"
	"fmt"
	"syscall"
	"time"
)

var (
	// ErrFull is returned by Add when the table is at capacity.
	ErrFull = errors.New("too many background processes")
	// ErrNotFound is returned when no live job has the requested process ID.
	ErrNotFound = errors.New("process not found")
	// ErrDuplicate is returned by Add when the process ID is already tracked.
	ErrDuplicate = errors.New("process already tracked")
)

// DefaultCapacity is the number of background jobs allowed when none is configured.
const DefaultCapacity = 10

// Prober queries and signals processes on behalf of the table.
type Prober interface {
	// Reap reports without blocking whether pid exited, and its status.
	Reap(pid int) (exited bool, status int, err error)
	// Signal delivers sig to pid.
	Signal(pid int, sig syscall.Signal) error
}

// Job is a background process started by the interpreter.
type Job struct {
	PID     int
	Name    string
	Started time.Time

	// ExitStatus is set on jobs returned by ReapCompleted.
	ExitStatus int
}

func (j Job) String() string {
	return fmt.Sprintf("ID: %d, Name: %s", j.PID, j.Name)
}

// Table holds the live background jobs in launch order.
type Table struct {
	capacity int
	prober   Prober
	now      func() time.Time

	jobs []Job
}

// NewTable creates a table for up to capacity jobs, zero means unbounded.
func NewTable(capacity int, prober Prober) *Table {
	if capacity < 0 {
		capacity = 0
	}
	return &Table{
		capacity: capacity,
		prober:   prober,
		now:      time.Now,
	}
}

// Add records a newly launched background process.
func (t *Table) Add(pid int, name string) (Job, error) {
	if t.Full() {
		return Job{}, ErrFull
	}
	if _, ok := t.Find(pid); ok {
		return Job{}, fmt.Errorf("%d: %w", pid, ErrDuplicate)
	}

	job := Job{PID: pid, Name: name, Started: t.now()}
	t.jobs = append(t.jobs, job)
	return job, nil
}

// ReapCompleted drops every job whose process exited and returns them with
// their exit status. Remaining jobs keep their relative order.
func (t *Table) ReapCompleted() []Job {
	var done []Job
	kept := t.jobs[:0]
	for _, job := range t.jobs {
		exited, status, err := t.prober.Reap(job.PID)
		if err != nil || !exited {
			kept = append(kept, job)
			continue
		}
		job.ExitStatus = status
		done = append(done, job)
	}

	// Zero the dropped tail of the backing array.
	for i := len(kept); i < len(t.jobs); i++ {
		t.jobs[i] = Job{}
	}
	t.jobs = kept
	return done
}

// List returns a snapshot of the live jobs in launch order.
func (t *Table) List() []Job {
	out := make([]Job, len(t.jobs))
	copy(out, t.jobs)
	return out
}

// Find looks up a live job by process ID.
func (t *Table) Find(pid int) (Job, bool) {
	for _, job := range t.jobs {
		if job.PID == pid {
			return job, true
		}
	}
	return Job{}, false
}

// Signal delivers sig to the live job with the given process ID. The job
// stays in the table until a reap observes that it exited.
func (t *Table) Signal(pid int, sig syscall.Signal) error {
	if _, ok := t.Find(pid); !ok {
		return fmt.Errorf("%d: %w", pid, ErrNotFound)
	}
	if err := t.prober.Signal(pid, sig); err != nil {
		return fmt.Errorf("signal %d: %w", pid, err)
	}
	return nil
}

// Len returns the number of live jobs.
func (t *Table) Len() int {
	return len(t.jobs)
}

// Cap returns the capacity, zero means unbounded.
func (t *Table) Cap() int {
	return t.capacity
}

// Full reports whether another job would be refused.
func (t *Table) Full() bool {
	return t.capacity > 0 && len(t.jobs) >= t.capacity
}
