package fridabind

import (
	"runtime"

	"github.com/dsjlzh/fridabind/driver"
)

type ChildOrigin = driver.ChildOrigin

const (
	ChildOriginFork  = driver.ChildOriginFork
	ChildOriginExec  = driver.ChildOriginExec
	ChildOriginSpawn = driver.ChildOriginSpawn
)

// Child is a child process held by child gating.
type Child struct {
	obj *object
}

func newChild(obj *object) *Child {
	c := &Child{obj: obj}
	runtime.SetFinalizer(c, (*Child).Close)
	return c
}

func (c *Child) Close() error {
	c.obj.release()
	return nil
}

func (c *Child) PID() (pid uint) {
	c.obj.peek(func(drv driver.Driver, h driver.Handle) {
		pid = drv.ChildPID(h)
	})
	return
}

func (c *Child) ParentPID() (pid uint) {
	c.obj.peek(func(drv driver.Driver, h driver.Handle) {
		pid = drv.ChildParentPID(h)
	})
	return
}

func (c *Child) Origin() (origin ChildOrigin) {
	c.obj.peek(func(drv driver.Driver, h driver.Handle) {
		origin = drv.ChildOrigin(h)
	})
	return
}

func (c *Child) Identifier() (id string) {
	c.obj.peek(func(drv driver.Driver, h driver.Handle) {
		id, _ = drv.ChildIdentifier(h)
	})
	return
}

func (c *Child) Path() (path string) {
	c.obj.peek(func(drv driver.Driver, h driver.Handle) {
		path, _ = drv.ChildPath(h)
	})
	return
}

func (c *Child) Argv() (argv []string) {
	c.obj.peek(func(drv driver.Driver, h driver.Handle) {
		argv = drv.ChildArgv(h)
	})
	return
}

func (c *Child) Envp() (envp []string) {
	c.obj.peek(func(drv driver.Driver, h driver.Handle) {
		envp = drv.ChildEnvp(h)
	})
	return
}

type ChildList struct {
	listView[Child]
}

func newChildList(obj *object) *ChildList {
	cl := &ChildList{listView[Child]{
		obj: obj,
		size: func(drv driver.Driver, l driver.Handle) int {
			return drv.ChildListSize(l)
		},
		get: func(drv driver.Driver, l driver.Handle, i int) driver.Handle {
			return drv.ChildListGet(l, i)
		},
		wrap: newChild,
	}}
	runtime.SetFinalizer(cl, (*ChildList).Close)
	return cl
}
