package fridabind

import (
	"runtime"

	"github.com/dsjlzh/fridabind/driver"
)

type Process struct {
	obj *object
}

func newProcess(obj *object) *Process {
	p := &Process{obj: obj}
	runtime.SetFinalizer(p, (*Process).Close)
	return p
}

func (p *Process) Close() error {
	p.obj.release()
	return nil
}

func (p *Process) PID() (pid uint) {
	p.obj.peek(func(drv driver.Driver, h driver.Handle) {
		pid = drv.ProcessPID(h)
	})
	return
}

func (p *Process) Name() (name string) {
	p.obj.peek(func(drv driver.Driver, h driver.Handle) {
		name = drv.ProcessName(h)
	})
	return
}

// Parameters holds what the query scope asked for: "path", "user", "ppid",
// "started", "icons", ...
func (p *Process) Parameters() (params map[string]any) {
	p.obj.peek(func(drv driver.Driver, h driver.Handle) {
		params = drv.ProcessParameters(h)
	})
	return
}

// ParentPID is only known when the process was enumerated with
// ScopeMetadata or ScopeFull; ErrUnsupported otherwise.
func (p *Process) ParentPID() (uint, error) {
	if p.obj.released() {
		return 0, ErrReleased
	}
	switch v := p.Parameters()["ppid"].(type) {
	case int64:
		return uint(v), nil
	case uint32:
		return uint(v), nil
	case int:
		return uint(v), nil
	case uint:
		return v, nil
	}
	return 0, ErrUnsupported
}

// ProcessList is a snapshot of the processes running at enumeration time.
type ProcessList struct {
	listView[Process]
}

func newProcessList(obj *object) *ProcessList {
	pl := &ProcessList{listView[Process]{
		obj: obj,
		size: func(drv driver.Driver, l driver.Handle) int {
			return drv.ProcessListSize(l)
		},
		get: func(drv driver.Driver, l driver.Handle, i int) driver.Handle {
			return drv.ProcessListGet(l, i)
		},
		wrap: newProcess,
	}}
	runtime.SetFinalizer(pl, (*ProcessList).Close)
	return pl
}
