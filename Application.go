package fridabind

import (
	"runtime"

	"github.com/dsjlzh/fridabind/driver"
)

type Application struct {
	obj *object
}

func newApplication(obj *object) *Application {
	a := &Application{obj: obj}
	runtime.SetFinalizer(a, (*Application).Close)
	return a
}

func (a *Application) Close() error {
	a.obj.release()
	return nil
}

func (a *Application) Identifier() (id string) {
	a.obj.peek(func(drv driver.Driver, h driver.Handle) {
		id = drv.ApplicationIdentifier(h)
	})
	return
}

func (a *Application) Name() (name string) {
	a.obj.peek(func(drv driver.Driver, h driver.Handle) {
		name = drv.ApplicationName(h)
	})
	return
}

// PID is 0 when the application is not running.
func (a *Application) PID() (pid uint) {
	a.obj.peek(func(drv driver.Driver, h driver.Handle) {
		pid = drv.ApplicationPID(h)
	})
	return
}

func (a *Application) Parameters() (params map[string]any) {
	a.obj.peek(func(drv driver.Driver, h driver.Handle) {
		params = drv.ApplicationParameters(h)
	})
	return
}

type ApplicationList struct {
	listView[Application]
}

func newApplicationList(obj *object) *ApplicationList {
	al := &ApplicationList{listView[Application]{
		obj: obj,
		size: func(drv driver.Driver, l driver.Handle) int {
			return drv.ApplicationListSize(l)
		},
		get: func(drv driver.Driver, l driver.Handle, i int) driver.Handle {
			return drv.ApplicationListGet(l, i)
		},
		wrap: newApplication,
	}}
	runtime.SetFinalizer(al, (*ApplicationList).Close)
	return al
}
