package game

import "context"

// job is one unit of work queued onto a table's actor.
type job struct {
	run  func()
	done chan struct{}
}

// TableActor serializes every mutation of a single table's state onto one
// goroutine-owned queue, per §5: "every mutation of a given table's state is
// serialized... realized either by a per-table single-consumer actor
// (recommended) or a per-table mutex." This is the actor form. The engine
// itself stays free of locks; callers submit closures and block until they
// commit, in submission order.
type TableActor struct {
	queue chan job
	stop  chan struct{}
}

// NewTableActor starts an actor goroutine backed by a bounded queue.
func NewTableActor(queueDepth int) *TableActor {
	if queueDepth <= 0 {
		queueDepth = 64
	}
	a := &TableActor{
		queue: make(chan job, queueDepth),
		stop:  make(chan struct{}),
	}
	go a.loop()
	return a
}

func (a *TableActor) loop() {
	for {
		select {
		case j := <-a.queue:
			j.run()
			close(j.done)
		case <-a.stop:
			for {
				select {
				case j := <-a.queue:
					j.run()
					close(j.done)
				default:
					return
				}
			}
		}
	}
}

// Submit enqueues fn and blocks until it has run, preserving submission
// order. It returns ctx.Err() if ctx is cancelled before fn runs; fn itself
// still runs to completion once dequeued, since the engine is not
// interruptible mid-mutation (§5: no suspension points inside the critical
// section).
func (a *TableActor) Submit(ctx context.Context, fn func()) error {
	j := job{run: fn, done: make(chan struct{})}
	select {
	case a.queue <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-a.stop:
		return context.Canceled
	}
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the actor's goroutine once every job already queued has run;
// a job already running completes first.
func (a *TableActor) Close() {
	close(a.stop)
}
