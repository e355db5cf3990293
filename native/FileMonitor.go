package native

/*
 #include "fridabind.h"
*/
import "C"
import (
	"github.com/dsjlzh/fridabind/driver"
)

func monitor(h driver.Handle) *C.FridaFileMonitor {
	return (*C.FridaFileMonitor)(ptr(h))
}

func (*Driver) FileMonitorNew(path string) driver.Handle {
	cpath := cstr(path)
	defer free(cpath)
	return handle(C.frida_file_monitor_new(cpath))
}

func (*Driver) FileMonitorEnable(m driver.Handle) error {
	var gerr *C.GError
	C.frida_file_monitor_enable_sync(monitor(m), nil, &gerr)
	return takeError(gerr)
}

func (*Driver) FileMonitorDisable(m driver.Handle) error {
	var gerr *C.GError
	C.frida_file_monitor_disable_sync(monitor(m), nil, &gerr)
	return takeError(gerr)
}

func (*Driver) FileMonitorConnectChange(m driver.Handle, fn driver.FileChangedFunc) driver.SignalID {
	return connect(fn, func(h C.uintptr_t) C.gulong {
		return C.fb_connect_change(C.gpointer(ptr(m)), h)
	})
}
