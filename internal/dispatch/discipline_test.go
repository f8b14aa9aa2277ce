package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingExecutor struct {
	tasks chan func()
}

func newRecordingExecutor() *recordingExecutor {
	return &recordingExecutor{tasks: make(chan func(), 16)}
}

func (r *recordingExecutor) Submit(task func()) { r.tasks <- task }

func TestDiscipline_DefaultsToMain(t *testing.T) {
	d := NewDiscipline(nil)
	assert.Same(t, Main(), d.Executor())

	ran := make(chan struct{})
	d.Submit(func() { close(ran) })
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("main queue did not run the task")
	}
}

func TestDiscipline_ReassignmentAffectsOnlyLaterWork(t *testing.T) {
	first := newRecordingExecutor()
	second := newRecordingExecutor()

	d := NewDiscipline(first)
	d.Submit(func() {})
	d.Set(second)
	d.Submit(func() {})
	d.Submit(func() {})

	assert.Len(t, first.tasks, 1)
	assert.Len(t, second.tasks, 2)
	assert.Same(t, second, d.Executor())
}

func TestDiscipline_SetNilRestoresMain(t *testing.T) {
	d := NewDiscipline(newRecordingExecutor())
	d.Set(nil)
	assert.Same(t, Main(), d.Executor())
}

func TestExecutorFunc(t *testing.T) {
	var called bool
	e := ExecutorFunc(func(task func()) { task() })
	e.Submit(func() { called = true })
	assert.True(t, called)
}
