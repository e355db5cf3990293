package native

/*
 #include "fridabind.h"
*/
import "C"
import (
	"unsafe"

	"github.com/dsjlzh/fridabind/driver"
)

func session(h driver.Handle) *C.FridaSession {
	return (*C.FridaSession)(ptr(h))
}

func (*Driver) SessionPID(s driver.Handle) uint {
	return uint(C.frida_session_get_pid(session(s)))
}

func (*Driver) SessionPersistTimeout(s driver.Handle) uint {
	return uint(C.frida_session_get_persist_timeout(session(s)))
}

func (*Driver) SessionIsDetached(s driver.Handle) bool {
	return C.frida_session_is_detached(session(s)) != 0
}

func (*Driver) SessionDetach(s driver.Handle) error {
	var gerr *C.GError
	C.frida_session_detach_sync(session(s), nil, &gerr)
	return takeError(gerr)
}

func (*Driver) SessionResume(s driver.Handle) error {
	var gerr *C.GError
	C.frida_session_resume_sync(session(s), nil, &gerr)
	return takeError(gerr)
}

func (*Driver) SessionEnableChildGating(s driver.Handle) error {
	var gerr *C.GError
	C.frida_session_enable_child_gating_sync(session(s), nil, &gerr)
	return takeError(gerr)
}

func (*Driver) SessionDisableChildGating(s driver.Handle) error {
	var gerr *C.GError
	C.frida_session_disable_child_gating_sync(session(s), nil, &gerr)
	return takeError(gerr)
}

func (*Driver) SessionCreateScript(s driver.Handle, source string, opts driver.Handle) (driver.Handle, error) {
	csource := cstr(source)
	defer free(csource)

	var gerr *C.GError
	script := C.frida_session_create_script_sync(session(s), csource, (*C.FridaScriptOptions)(ptr(opts)), nil, &gerr)
	return result(unsafe.Pointer(script), gerr)
}

func (*Driver) SessionCreateScriptFromBytes(s driver.Handle, bytes []byte, opts driver.Handle) (driver.Handle, error) {
	b := newBytes(bytes)
	defer C.g_bytes_unref(b)

	var gerr *C.GError
	script := C.frida_session_create_script_from_bytes_sync(session(s), b, (*C.FridaScriptOptions)(ptr(opts)), nil, &gerr)
	return result(unsafe.Pointer(script), gerr)
}

func (*Driver) SessionCompileScript(s driver.Handle, source string, opts driver.Handle) ([]byte, error) {
	csource := cstr(source)
	defer free(csource)

	var gerr *C.GError
	b := C.frida_session_compile_script_sync(session(s), csource, (*C.FridaScriptOptions)(ptr(opts)), nil, &gerr)
	if err := takeError(gerr); err != nil {
		if b != nil {
			C.g_bytes_unref(b)
		}
		return nil, err
	}
	return takeBytes(b), nil
}

func (*Driver) SessionConnectDetached(s driver.Handle, fn driver.DetachedFunc) driver.SignalID {
	return connect(fn, func(h C.uintptr_t) C.gulong {
		return C.fb_connect_detached(C.gpointer(ptr(s)), h)
	})
}
