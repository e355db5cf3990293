package native

/*
 #include "fridabind.h"
*/
import "C"
import (
	"github.com/dsjlzh/fridabind/driver"
)

func script(h driver.Handle) *C.FridaScript {
	return (*C.FridaScript)(ptr(h))
}

func (*Driver) ScriptIsDestroyed(s driver.Handle) bool {
	return C.frida_script_is_destroyed(script(s)) != 0
}

func (*Driver) ScriptLoad(s driver.Handle) error {
	var gerr *C.GError
	C.frida_script_load_sync(script(s), nil, &gerr)
	return takeError(gerr)
}

func (*Driver) ScriptUnload(s driver.Handle) error {
	var gerr *C.GError
	C.frida_script_unload_sync(script(s), nil, &gerr)
	return takeError(gerr)
}

func (*Driver) ScriptEternalize(s driver.Handle) error {
	var gerr *C.GError
	C.frida_script_eternalize_sync(script(s), nil, &gerr)
	return takeError(gerr)
}

func (*Driver) ScriptPost(s driver.Handle, message string, data []byte) {
	cmessage := cstr(message)
	defer free(cmessage)

	var bytes *C.GBytes
	if data != nil {
		bytes = newBytes(data)
		defer C.g_bytes_unref(bytes)
	}
	C.frida_script_post(script(s), cmessage, bytes)
}

func (*Driver) ScriptConnectMessage(s driver.Handle, fn driver.MessageFunc) driver.SignalID {
	return connect(fn, func(h C.uintptr_t) C.gulong {
		return C.fb_connect_message(C.gpointer(ptr(s)), h)
	})
}
