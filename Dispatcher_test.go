package fridabind

import (
	"sync"
	"testing"
	"time"
)

// wait blocks until every accepted event has been handled.
func (d *dispatcher) wait() {
	<-d.done
}

func TestDispatcherOrder(t *testing.T) {
	d := newDispatcher("test", 100)

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		if !d.post(func() { got = append(got, i) }) {
			t.Fatalf("post %d rejected", i)
		}
	}
	d.close()
	d.wait()

	if len(got) != 100 {
		t.Fatalf("handled %d events, want 100", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("event %d handled as %d", i, v)
		}
	}
}

func TestDispatcherRecoversPanics(t *testing.T) {
	d := newDispatcher("test", 1)

	var wg sync.WaitGroup
	wg.Add(1)
	d.post(func() { panic("handler bug") })
	d.post(func() { wg.Done() })
	wg.Wait()
	d.close()
	d.wait()
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := newDispatcher("test", 0)
	d.close()
	d.close()
	if d.post(func() { t.Error("event ran after close") }) {
		t.Error("post accepted after close")
	}
	d.wait()
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	d := newDispatcher("test", 1)
	started := make(chan struct{})
	release := make(chan struct{})
	defer func() {
		d.close()
		d.wait()
	}()

	d.post(func() {
		close(started)
		<-release
	})
	<-started
	if !d.post(func() {}) {
		t.Fatal("post rejected with room in the queue")
	}

	returned := make(chan bool)
	go func() { returned <- d.post(func() { t.Error("dropped event ran") }) }()
	select {
	case ok := <-returned:
		if ok {
			t.Error("post accepted into a full queue")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("post blocked on a full queue")
	}
	close(release)
}
