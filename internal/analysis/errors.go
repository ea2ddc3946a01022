package analysis

import "fmt"

// WorkerFault is a failure of the worker's own bookkeeping. Unlike a failing document it aborts
// the batch and moves the job to failed.
type WorkerFault struct {
	step  string
	cause error
}

func newWorkerFault(step string, cause error) *WorkerFault {
	return &WorkerFault{step: step, cause: cause}
}

func (e *WorkerFault) Error() string {
	return e.cause.Error()
}

func (e *WorkerFault) Step() string {
	return e.step
}

func (e *WorkerFault) Unwrap() error {
	return e.cause
}

func panicFault(r any) *WorkerFault {
	if err, ok := r.(error); ok {
		return newWorkerFault("panic", err)
	}
	return newWorkerFault("panic", fmt.Errorf("%v", r))
}
