package fridabind

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/dsjlzh/fridabind/driver"
)

// MessageHandler receives what a script sends. data is nil when the
// message carried no binary payload and non-nil (possibly empty) otherwise.
type MessageHandler interface {
	HandleMessage(message string, data []byte)
}

type MessageHandlerFunc func(message string, data []byte)

func (f MessageHandlerFunc) HandleMessage(message string, data []byte) {
	f(message, data)
}

type Script struct {
	obj  *object
	name string

	mu      sync.Mutex
	disp    *dispatcher
	handler *atomic.Pointer[MessageHandler]
	rpc     *rpcTable
}

func newScript(obj *object, name string) *Script {
	s := &Script{
		obj:     obj,
		name:    name,
		handler: new(atomic.Pointer[MessageHandler]),
		rpc:     newRPCTable(),
	}
	obj.shutdown = func(drv driver.Driver, h driver.Handle) {
		if drv.ScriptIsDestroyed(h) {
			return
		}
		if err := drv.ScriptUnload(h); err != nil {
			log.WithFields(logrus.Fields{
				"name": name,
				"err":  err,
			}).Debug("Script: unload on close failed")
		}
	}
	obj.onRelease(s.rpc.abort)
	runtime.SetFinalizer(s, (*Script).Close)
	return s
}

// Close unloads the script if it is still loaded, then releases it.
func (s *Script) Close() error {
	s.obj.release()
	return nil
}

// Name is the name given at creation, empty when none was.
func (s *Script) Name() string {
	return s.name
}

func (s *Script) IsDestroyed() (destroyed bool) {
	destroyed = true
	s.obj.peek(func(drv driver.Driver, h driver.Handle) {
		destroyed = drv.ScriptIsDestroyed(h)
	})
	return
}

func (s *Script) Load() error {
	log.WithFields(logrus.Fields{
		"name": s.name,
	}).Debug("Script: load")
	return s.obj.use(func(drv driver.Driver, h driver.Handle) error {
		return NewErrorFromGError(drv.ScriptLoad(h))
	})
}

func (s *Script) Unload() error {
	log.WithFields(logrus.Fields{
		"name": s.name,
	}).Debug("Script: unload")
	return s.obj.use(func(drv driver.Driver, h driver.Handle) error {
		return NewErrorFromGError(drv.ScriptUnload(h))
	})
}

// Eternalize keeps the script loaded after the session ends.
func (s *Script) Eternalize() error {
	return s.obj.use(func(drv driver.Driver, h driver.Handle) error {
		return NewErrorFromGError(drv.ScriptEternalize(h))
	})
}

// Post sends a JSON message to the script's recv() handlers.
func (s *Script) Post(message string) error {
	return s.PostWithData(message, nil)
}

// PostWithData sends message with a binary payload. A nil data sends no
// payload.
func (s *Script) PostWithData(message string, data []byte) error {
	return s.obj.use(func(drv driver.Driver, h driver.Handle) error {
		drv.ScriptPost(h, message, data)
		return nil
	})
}

// OnMessage registers handler for the script's messages. A later call
// replaces the handler; nil removes it. Handlers run one at a time, in
// arrival order, on a goroutine owned by the script. Without a handler, log
// and error messages go to the package logger.
func (s *Script) OnMessage(handler MessageHandler) error {
	if handler == nil {
		s.handler.Store(nil)
		return nil
	}
	s.handler.Store(&handler)
	return s.connect()
}

func (s *Script) connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disp != nil {
		return nil
	}
	// the callback must not reference s, or the finalizer never runs
	disp := newDispatcher("script "+s.name, currentConfig().MessageQueueSize)
	handler, rpc, name := s.handler, s.rpc, s.name
	err := s.obj.subscribe(func(drv driver.Driver, h driver.Handle) driver.SignalID {
		return drv.ScriptConnectMessage(h, func(message string, data []byte) {
			if rpc.deliver(message, data) {
				return
			}
			disp.post(func() {
				if hd := handler.Load(); hd != nil {
					(*hd).HandleMessage(message, data)
					return
				}
				logUnhandled(name, message)
			})
		})
	}, disp.close)
	if err != nil {
		disp.close()
		return err
	}
	s.disp = disp
	return nil
}

func logUnhandled(script, message string) {
	m, err := ParseMessage(message)
	if err != nil {
		log.WithFields(logrus.Fields{
			"script":  script,
			"message": message,
		}).Warn("Script: unparsable message")
		return
	}
	switch m.Type {
	case MessageTypeLog:
		entry := log.WithFields(logrus.Fields{
			"script": script,
		})
		switch m.Level {
		case "error":
			entry.Error(m.Text)
		case "warning":
			entry.Warn(m.Text)
		default:
			entry.Info(m.Text)
		}
	case MessageTypeError:
		log.WithFields(logrus.Fields{
			"script": script,
			"stack":  m.Stack,
		}).Error(m.Description)
	default:
		log.WithFields(logrus.Fields{
			"script":  script,
			"payload": string(m.Payload),
		}).Debug("Script: unhandled message")
	}
}
