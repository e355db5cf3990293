package fridabind

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/dsjlzh/fridabind/driver"
)

type FileMonitorEvent = driver.FileMonitorEvent

const (
	FileChanged          = driver.FileChanged
	FileChangesDoneHint  = driver.FileChangesDoneHint
	FileDeleted          = driver.FileDeleted
	FileCreated          = driver.FileCreated
	FileAttributeChanged = driver.FileAttributeChanged
	FilePreUnmount       = driver.FilePreUnmount
	FileUnmounted        = driver.FileUnmounted
	FileMoved            = driver.FileMoved
	FileRenamed          = driver.FileRenamed
	FileMovedIn          = driver.FileMovedIn
	FileMovedOut         = driver.FileMovedOut
)

// FileChange is one event reported by a FileMonitor. OtherPath is only set
// for moves and renames.
type FileChange struct {
	Path      string
	OtherPath string
	Event     FileMonitorEvent
}

type FileChangeHandler func(change *FileChange)

// FileMonitor watches a path on the local filesystem.
type FileMonitor struct {
	obj  *object
	path string

	mu       sync.Mutex
	disp     *dispatcher
	onChange *atomic.Pointer[FileChangeHandler]
}

func NewFileMonitor(path string) (*FileMonitor, error) {
	l, err := initLibrary()
	if err != nil {
		return nil, err
	}
	h := l.drv.FileMonitorNew(path)
	if h == 0 {
		l.deinit()
		return nil, NewErrorAndLog("FileMonitor: new failed", ErrorUnknown)
	}
	obj := adopt(l.drv, h, "file monitor")
	obj.onRelease(l.deinit)
	fm := &FileMonitor{
		obj:      obj,
		path:     path,
		onChange: new(atomic.Pointer[FileChangeHandler]),
	}
	runtime.SetFinalizer(fm, (*FileMonitor).Close)
	return fm, nil
}

func (fm *FileMonitor) Close() error {
	fm.obj.release()
	return nil
}

func (fm *FileMonitor) Path() string {
	return fm.path
}

func (fm *FileMonitor) Enable() error {
	log.WithFields(logrus.Fields{
		"path": fm.path,
	}).Debug("FileMonitor: enable")
	return fm.obj.use(func(drv driver.Driver, h driver.Handle) error {
		return NewErrorFromGError(drv.FileMonitorEnable(h))
	})
}

func (fm *FileMonitor) Disable() error {
	return fm.obj.use(func(drv driver.Driver, h driver.Handle) error {
		return NewErrorFromGError(drv.FileMonitorDisable(h))
	})
}

// OnChange registers fn for change events. A later call replaces the
// handler; nil removes it.
func (fm *FileMonitor) OnChange(fn FileChangeHandler) error {
	if fn == nil {
		fm.onChange.Store(nil)
		return nil
	}
	fm.onChange.Store(&fn)

	fm.mu.Lock()
	defer fm.mu.Unlock()
	if fm.disp != nil {
		return nil
	}
	disp := newDispatcher("file monitor", currentConfig().MessageQueueSize)
	handler := fm.onChange
	err := fm.obj.subscribe(func(drv driver.Driver, h driver.Handle) driver.SignalID {
		return drv.FileMonitorConnectChange(h, func(path, otherPath string, event driver.FileMonitorEvent) {
			change := &FileChange{Path: path, OtherPath: otherPath, Event: event}
			disp.post(func() {
				if fn := handler.Load(); fn != nil {
					(*fn)(change)
				}
			})
		})
	}, disp.close)
	if err != nil {
		disp.close()
		return err
	}
	fm.disp = disp
	return nil
}
