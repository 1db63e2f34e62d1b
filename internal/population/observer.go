package population

// Observer receives run notifications. Progress is called from worker
// goroutines and must be safe for concurrent use. Terminated is called once
// per accepted run, after the run state is cleared, whatever the outcome.
type Observer interface {
	Progress(processed, total int)
	Terminated()
}

// ObserverFuncs adapts plain functions to an Observer. Nil fields are
// skipped.
type ObserverFuncs struct {
	OnProgress   func(processed, total int)
	OnTerminated func()
}

func (o ObserverFuncs) Progress(processed, total int) {
	if o.OnProgress != nil {
		o.OnProgress(processed, total)
	}
}

func (o ObserverFuncs) Terminated() {
	if o.OnTerminated != nil {
		o.OnTerminated()
	}
}
