package native

/*
 #include "fridabind.h"
*/
import "C"
import (
	"github.com/dsjlzh/fridabind/driver"
)

// The *ListGet methods drop the reference frida hands out; the list keeps
// the item alive.

func (*Driver) ProcessListSize(l driver.Handle) int {
	return int(C.frida_process_list_size((*C.FridaProcessList)(ptr(l))))
}

func (*Driver) ProcessListGet(l driver.Handle, i int) driver.Handle {
	p := C.frida_process_list_get((*C.FridaProcessList)(ptr(l)), C.gint(i))
	C.g_object_unref(C.gpointer(p))
	return handle(p)
}

func (*Driver) ProcessPID(p driver.Handle) uint {
	return uint(C.frida_process_get_pid((*C.FridaProcess)(ptr(p))))
}

func (*Driver) ProcessName(p driver.Handle) string {
	return gostr(C.frida_process_get_name((*C.FridaProcess)(ptr(p))))
}

func (*Driver) ProcessParameters(p driver.Handle) map[string]any {
	return goParameters(C.frida_process_get_parameters((*C.FridaProcess)(ptr(p))))
}

func (*Driver) ApplicationListSize(l driver.Handle) int {
	return int(C.frida_application_list_size((*C.FridaApplicationList)(ptr(l))))
}

func (*Driver) ApplicationListGet(l driver.Handle, i int) driver.Handle {
	a := C.frida_application_list_get((*C.FridaApplicationList)(ptr(l)), C.gint(i))
	C.g_object_unref(C.gpointer(a))
	return handle(a)
}

func (*Driver) ApplicationIdentifier(a driver.Handle) string {
	return gostr(C.frida_application_get_identifier((*C.FridaApplication)(ptr(a))))
}

func (*Driver) ApplicationName(a driver.Handle) string {
	return gostr(C.frida_application_get_name((*C.FridaApplication)(ptr(a))))
}

func (*Driver) ApplicationPID(a driver.Handle) uint {
	return uint(C.frida_application_get_pid((*C.FridaApplication)(ptr(a))))
}

func (*Driver) ApplicationParameters(a driver.Handle) map[string]any {
	return goParameters(C.frida_application_get_parameters((*C.FridaApplication)(ptr(a))))
}

func (*Driver) SpawnListSize(l driver.Handle) int {
	return int(C.frida_spawn_list_size((*C.FridaSpawnList)(ptr(l))))
}

func (*Driver) SpawnListGet(l driver.Handle, i int) driver.Handle {
	s := C.frida_spawn_list_get((*C.FridaSpawnList)(ptr(l)), C.gint(i))
	C.g_object_unref(C.gpointer(s))
	return handle(s)
}

func (*Driver) SpawnPID(s driver.Handle) uint {
	return uint(C.frida_spawn_get_pid((*C.FridaSpawn)(ptr(s))))
}

func (*Driver) SpawnIdentifier(s driver.Handle) (string, bool) {
	return gostrOK(C.frida_spawn_get_identifier((*C.FridaSpawn)(ptr(s))))
}

func child(h driver.Handle) *C.FridaChild {
	return (*C.FridaChild)(ptr(h))
}

func (*Driver) ChildListSize(l driver.Handle) int {
	return int(C.frida_child_list_size((*C.FridaChildList)(ptr(l))))
}

func (*Driver) ChildListGet(l driver.Handle, i int) driver.Handle {
	c := C.frida_child_list_get((*C.FridaChildList)(ptr(l)), C.gint(i))
	C.g_object_unref(C.gpointer(c))
	return handle(c)
}

func (*Driver) ChildPID(c driver.Handle) uint {
	return uint(C.frida_child_get_pid(child(c)))
}

func (*Driver) ChildParentPID(c driver.Handle) uint {
	return uint(C.frida_child_get_parent_pid(child(c)))
}

func (*Driver) ChildOrigin(c driver.Handle) driver.ChildOrigin {
	return driver.ChildOrigin(C.frida_child_get_origin(child(c)))
}

func (*Driver) ChildIdentifier(c driver.Handle) (string, bool) {
	return gostrOK(C.frida_child_get_identifier(child(c)))
}

func (*Driver) ChildPath(c driver.Handle) (string, bool) {
	return gostrOK(C.frida_child_get_path(child(c)))
}

func (*Driver) ChildArgv(c driver.Handle) []string {
	var n C.gint
	argv := C.frida_child_get_argv(child(c), &n)
	return gostrv(argv, n)
}

func (*Driver) ChildEnvp(c driver.Handle) []string {
	var n C.gint
	envp := C.frida_child_get_envp(child(c), &n)
	return gostrv(envp, n)
}
