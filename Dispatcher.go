package fridabind

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// dispatcher hands events from native signal threads to one goroutine that
// runs the handlers in arrival order. Native threads never run user code.
type dispatcher struct {
	name   string
	events chan func()
	quit   chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newDispatcher(name string, size int) *dispatcher {
	if size < 1 {
		size = 1
	}
	d := &dispatcher{
		name:   name,
		events: make(chan func(), size),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) run() {
	defer close(d.done)
	for {
		select {
		case fn := <-d.events:
			d.invoke(fn)
		case <-d.quit:
			// deliver what was queued before the close
			for {
				select {
				case fn := <-d.events:
					d.invoke(fn)
				default:
					return
				}
			}
		}
	}
}

func (d *dispatcher) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(logrus.Fields{
				"dispatcher": d.name,
				"panic":      r,
			}).Error("event handler panicked")
		}
	}()
	fn()
}

// post queues fn without blocking, since it runs on the native main loop.
// It drops fn and reports false when the queue is full or the dispatcher is
// closed.
func (d *dispatcher) post(fn func()) bool {
	select {
	case <-d.quit:
		return false
	default:
	}
	select {
	case d.events <- fn:
		return true
	default:
		log.WithFields(logrus.Fields{
			"dispatcher": d.name,
			"size":       cap(d.events),
		}).Warn("event queue full, dropping event")
		return false
	}
}

// close stops accepting events. Queued events are still delivered.
func (d *dispatcher) close() {
	d.once.Do(func() {
		close(d.quit)
	})
}
