package native

/*
 #include "fridabind.h"
*/
import "C"
import (
	"runtime/cgo"
	"unsafe"

	"github.com/dsjlzh/fridabind/driver"
)

// The exported functions below run on the frida main loop thread. Each
// signal connection owns one cgo.Handle to its Go callback; the closure
// notify deletes it once GLib drops the connection.

//export fbOnMessage
func fbOnMessage(handle C.uintptr_t, message *C.char, data unsafe.Pointer, size C.int, present C.int) {
	fn, ok := cgo.Handle(handle).Value().(driver.MessageFunc)
	if !ok {
		return
	}
	var payload []byte
	if present != 0 {
		payload = []byte{}
		if size > 0 {
			payload = C.GoBytes(data, size)
		}
	}
	fn(C.GoString(message), payload)
}

//export fbOnDetached
func fbOnDetached(handle C.uintptr_t, reason C.int, hasCrash C.int, pid C.uint, name, summary, report *C.char) {
	fn, ok := cgo.Handle(handle).Value().(driver.DetachedFunc)
	if !ok {
		return
	}
	var crash *driver.Crash
	if hasCrash != 0 {
		crash = &driver.Crash{
			PID:         uint(pid),
			ProcessName: C.GoString(name),
			Summary:     C.GoString(summary),
			Report:      C.GoString(report),
		}
	}
	fn(driver.DetachReason(reason), crash)
}

//export fbOnFileChange
func fbOnFileChange(handle C.uintptr_t, file, other *C.char, event C.int) {
	fn, ok := cgo.Handle(handle).Value().(driver.FileChangedFunc)
	if !ok {
		return
	}
	var otherPath string
	if other != nil {
		otherPath = C.GoString(other)
	}
	fn(C.GoString(file), otherPath, driver.FileMonitorEvent(event))
}

//export fbReleaseHandle
func fbReleaseHandle(handle C.uintptr_t) {
	cgo.Handle(handle).Delete()
}

// connect hands fn to a C connect helper. A zero id means GLib refused
// the connection and never took the handle.
func connect(fn any, connectFn func(h C.uintptr_t) C.gulong) driver.SignalID {
	h := cgo.NewHandle(fn)
	id := connectFn(C.uintptr_t(h))
	if id == 0 {
		h.Delete()
	}
	return driver.SignalID(id)
}
