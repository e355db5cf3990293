package fridabind

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dsjlzh/fridabind/driver"
)

// object owns one counted reference to a native object. It moves from held
// to released exactly once; the zero handle marks released.
//
// Wrappers embed a *object and are only handed out as pointers. Sharing a
// native object between two wrappers requires a second reference (see
// acquire), never a copy of the record.
type object struct {
	mu  sync.RWMutex
	drv driver.Driver
	ptr driver.Handle

	kind    string
	signals []driver.SignalID
	// shutdown runs before the final unref. It must not fail loudly.
	shutdown func(drv driver.Driver, h driver.Handle)
	cleanups []func()
}

// adopt wraps a handle the caller already owns a reference to.
func adopt(drv driver.Driver, h driver.Handle, kind string) *object {
	return &object{drv: drv, ptr: h, kind: kind}
}

// acquire wraps a borrowed handle, taking a reference of its own.
func acquire(drv driver.Driver, h driver.Handle, kind string) *object {
	drv.Ref(h)
	return adopt(drv, h, kind)
}

// failed drops a handle a driver returned together with err, and converts
// err.
func failed(drv driver.Driver, h driver.Handle, err error) error {
	if h != 0 {
		drv.Unref(h)
	}
	return NewErrorFromGError(err)
}

// use runs fn with the live handle. The handle cannot be released while fn
// runs.
func (o *object) use(fn func(drv driver.Driver, h driver.Handle) error) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.ptr == 0 {
		return ErrReleased
	}
	return fn(o.drv, o.ptr)
}

// peek is use for getters, which return their zero value once released.
func (o *object) peek(fn func(drv driver.Driver, h driver.Handle)) {
	o.use(func(drv driver.Driver, h driver.Handle) error {
		fn(drv, h)
		return nil
	})
}

func (o *object) released() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.ptr == 0
}

// subscribe connects a signal handler that is disconnected on release;
// cleanup runs after the release.
func (o *object) subscribe(connect func(drv driver.Driver, h driver.Handle) driver.SignalID, cleanup func()) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ptr == 0 {
		return ErrReleased
	}
	o.signals = append(o.signals, connect(o.drv, o.ptr))
	if cleanup != nil {
		o.cleanups = append(o.cleanups, cleanup)
	}
	return nil
}

// onRelease registers fn to run after the native reference is dropped.
func (o *object) onRelease(fn func()) {
	o.mu.Lock()
	o.cleanups = append(o.cleanups, fn)
	o.mu.Unlock()
}

// release drops the reference. Only the first call does anything; it
// reports whether it did.
func (o *object) release() bool {
	o.mu.Lock()
	h := o.ptr
	o.ptr = 0
	signals, cleanups := o.signals, o.cleanups
	o.signals, o.cleanups = nil, nil
	o.mu.Unlock()

	if h == 0 {
		return false
	}
	if o.shutdown != nil {
		o.shutdown(o.drv, h)
	}
	for _, id := range signals {
		o.drv.Disconnect(h, id)
	}
	o.drv.Unref(h)
	for _, fn := range cleanups {
		fn()
	}
	log.WithFields(logrus.Fields{
		"kind":   o.kind,
		"handle": uintptr(h),
	}).Trace("released")
	return true
}

// withHandle runs fn with the handle of an optional wrapper; a nil object
// passes the zero handle.
func withHandle(o *object, fn func(h driver.Handle) error) error {
	if o == nil {
		return fn(0)
	}
	return o.use(func(_ driver.Driver, h driver.Handle) error {
		return fn(h)
	})
}
