package fridabind

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/dsjlzh/fridabind/driver"
)

// DetachedHandler is told why a session ended.
type DetachedHandler func(reason DetachReason, crash *Crash)

// Session is an instrumentation context bound to one process.
type Session struct {
	obj      *object
	detached *atomic.Bool

	mu         sync.Mutex
	disp       *dispatcher
	onDetached *atomic.Pointer[DetachedHandler]
}

func newSession(obj *object) *Session {
	detached := new(atomic.Bool)
	sess := &Session{
		obj:        obj,
		detached:   detached,
		onDetached: new(atomic.Pointer[DetachedHandler]),
	}
	obj.shutdown = func(drv driver.Driver, h driver.Handle) {
		if detached.Load() || drv.SessionIsDetached(h) {
			return
		}
		if err := drv.SessionDetach(h); err != nil {
			log.WithFields(logrus.Fields{
				"err": err,
			}).Debug("Session: detach on close failed")
		}
	}
	runtime.SetFinalizer(sess, (*Session).Close)
	return sess
}

// Close detaches the session if it is still attached, then releases it.
func (sess *Session) Close() error {
	sess.obj.release()
	return nil
}

func (sess *Session) PID() (pid uint) {
	sess.obj.peek(func(drv driver.Driver, h driver.Handle) {
		pid = drv.SessionPID(h)
	})
	return
}

// PersistTimeout is the number of seconds the session survives a lost
// connection.
func (sess *Session) PersistTimeout() (timeout uint) {
	sess.obj.peek(func(drv driver.Driver, h driver.Handle) {
		timeout = drv.SessionPersistTimeout(h)
	})
	return
}

func (sess *Session) IsDetached() (detached bool) {
	detached = true
	sess.obj.peek(func(drv driver.Driver, h driver.Handle) {
		detached = drv.SessionIsDetached(h)
	})
	return
}

func (sess *Session) Detach() error {
	return sess.obj.use(func(drv driver.Driver, h driver.Handle) error {
		if err := drv.SessionDetach(h); err != nil {
			return NewErrorFromGError(err)
		}
		sess.detached.Store(true)
		return nil
	})
}

// Resume resumes an interrupted session.
func (sess *Session) Resume() error {
	return sess.obj.use(func(drv driver.Driver, h driver.Handle) error {
		return NewErrorFromGError(drv.SessionResume(h))
	})
}

func (sess *Session) EnableChildGating() error {
	return sess.obj.use(func(drv driver.Driver, h driver.Handle) error {
		return NewErrorFromGError(drv.SessionEnableChildGating(h))
	})
}

func (sess *Session) DisableChildGating() error {
	return sess.obj.use(func(drv driver.Driver, h driver.Handle) error {
		return NewErrorFromGError(drv.SessionDisableChildGating(h))
	})
}

// CreateScript creates a script from source. opts may be nil.
func (sess *Session) CreateScript(source string, opts *ScriptOptions) (s *Script, err error) {
	name := opts.scriptName()
	log.WithFields(logrus.Fields{
		"name": name,
	}).Debug("Session: create script ...")

	err = sess.obj.use(func(drv driver.Driver, h driver.Handle) error {
		return withHandle(opts.object(), func(oh driver.Handle) error {
			sh, err := drv.SessionCreateScript(h, source, oh)
			if err != nil {
				return failed(drv, sh, err)
			}
			s = newScript(adopt(drv, sh, "script"), name)
			return nil
		})
	})
	return
}

// CreateScriptNamed creates a script from source with the given name.
func (sess *Session) CreateScriptNamed(source, name string) (*Script, error) {
	opts, err := NewScriptOptions()
	if err != nil {
		return nil, err
	}
	defer opts.Close()
	if err := opts.SetName(name); err != nil {
		return nil, err
	}
	return sess.CreateScript(source, opts)
}

// CreateScriptFromBytes creates a script from bytecode produced by
// CompileScript.
func (sess *Session) CreateScriptFromBytes(bytes []byte, opts *ScriptOptions) (s *Script, err error) {
	name := opts.scriptName()
	log.WithFields(logrus.Fields{
		"name": name,
		"size": len(bytes),
	}).Debug("Session: create script from bytes ...")

	err = sess.obj.use(func(drv driver.Driver, h driver.Handle) error {
		return withHandle(opts.object(), func(oh driver.Handle) error {
			sh, err := drv.SessionCreateScriptFromBytes(h, bytes, oh)
			if err != nil {
				return failed(drv, sh, err)
			}
			s = newScript(adopt(drv, sh, "script"), name)
			return nil
		})
	})
	return
}

// CompileScript compiles source to bytecode without loading it.
func (sess *Session) CompileScript(source string, opts *ScriptOptions) (code []byte, err error) {
	err = sess.obj.use(func(drv driver.Driver, h driver.Handle) error {
		return withHandle(opts.object(), func(oh driver.Handle) error {
			code, err = drv.SessionCompileScript(h, source, oh)
			return NewErrorFromGError(err)
		})
	})
	return
}

// OnDetached registers fn to run when the session ends. A later call
// replaces the handler; nil removes it.
func (sess *Session) OnDetached(fn DetachedHandler) error {
	if fn == nil {
		sess.onDetached.Store(nil)
		return nil
	}
	sess.onDetached.Store(&fn)
	return sess.connect()
}

func (sess *Session) connect() error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.disp != nil {
		return nil
	}
	// the callback must not reference sess, or the finalizer never runs
	disp := newDispatcher("session", currentConfig().MessageQueueSize)
	handler := sess.onDetached
	err := sess.obj.subscribe(func(drv driver.Driver, h driver.Handle) driver.SignalID {
		return drv.SessionConnectDetached(h, func(reason driver.DetachReason, crash *driver.Crash) {
			c := newCrash(crash)
			disp.post(func() {
				if fn := handler.Load(); fn != nil {
					(*fn)(reason, c)
				}
			})
		})
	}, disp.close)
	if err != nil {
		disp.close()
		return err
	}
	sess.disp = disp
	return nil
}
