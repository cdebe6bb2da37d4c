package pipeline

// Job is the handle of a phase running in the background.
type Job[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Done is closed when the phase has returned and all its events were
// delivered.
func (j *Job[T]) Done() <-chan struct{} { return j.done }

func (j *Job[T]) Wait() (T, error) {
	<-j.done
	return j.val, j.err
}
