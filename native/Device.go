package native

/*
 #include "fridabind.h"
*/
import "C"
import (
	"unsafe"

	"github.com/dsjlzh/fridabind/driver"
)

func device(h driver.Handle) *C.FridaDevice {
	return (*C.FridaDevice)(ptr(h))
}

func (*Driver) DeviceID(d driver.Handle) string {
	return gostr(C.frida_device_get_id(device(d)))
}

func (*Driver) DeviceName(d driver.Handle) string {
	return gostr(C.frida_device_get_name(device(d)))
}

func (*Driver) DeviceType(d driver.Handle) driver.DeviceType {
	return driver.DeviceType(C.frida_device_get_dtype(device(d)))
}

func (*Driver) DeviceIsLost(d driver.Handle) bool {
	return C.frida_device_is_lost(device(d)) != 0
}

func (*Driver) DeviceQuerySystemParameters(d driver.Handle) (map[string]any, error) {
	var gerr *C.GError
	table := C.frida_device_query_system_parameters_sync(device(d), nil, &gerr)
	if table != nil {
		defer C.g_hash_table_unref(table)
	}
	if err := takeError(gerr); err != nil {
		return nil, err
	}
	return goParameters(table), nil
}

func (*Driver) DeviceGetFrontmostApplication(d driver.Handle, opts driver.Handle) (driver.Handle, error) {
	var gerr *C.GError
	app := C.frida_device_get_frontmost_application_sync(device(d),
		(*C.FridaFrontmostQueryOptions)(ptr(opts)), nil, &gerr)
	return result(unsafe.Pointer(app), gerr)
}

func (*Driver) DeviceEnumerateApplications(d driver.Handle, opts driver.Handle) (driver.Handle, error) {
	var gerr *C.GError
	list := C.frida_device_enumerate_applications_sync(device(d),
		(*C.FridaApplicationQueryOptions)(ptr(opts)), nil, &gerr)
	return result(unsafe.Pointer(list), gerr)
}

func (*Driver) DeviceEnumerateProcesses(d driver.Handle, opts driver.Handle) (driver.Handle, error) {
	var gerr *C.GError
	list := C.frida_device_enumerate_processes_sync(device(d),
		(*C.FridaProcessQueryOptions)(ptr(opts)), nil, &gerr)
	return result(unsafe.Pointer(list), gerr)
}

// DeviceFindProcessByPID returns a zero handle when no process matches.
func (*Driver) DeviceFindProcessByPID(d driver.Handle, pid uint, opts driver.Handle) (driver.Handle, error) {
	var gerr *C.GError
	p := C.frida_device_find_process_by_pid_sync(device(d), C.guint(pid),
		(*C.FridaProcessMatchOptions)(ptr(opts)), nil, &gerr)
	return result(unsafe.Pointer(p), gerr)
}

func (*Driver) DeviceFindProcessByName(d driver.Handle, name string, opts driver.Handle) (driver.Handle, error) {
	cname := cstr(name)
	defer free(cname)

	var gerr *C.GError
	p := C.frida_device_find_process_by_name_sync(device(d), cname,
		(*C.FridaProcessMatchOptions)(ptr(opts)), nil, &gerr)
	return result(unsafe.Pointer(p), gerr)
}

func (*Driver) DeviceEnableSpawnGating(d driver.Handle) error {
	var gerr *C.GError
	C.frida_device_enable_spawn_gating_sync(device(d), nil, &gerr)
	return takeError(gerr)
}

func (*Driver) DeviceDisableSpawnGating(d driver.Handle) error {
	var gerr *C.GError
	C.frida_device_disable_spawn_gating_sync(device(d), nil, &gerr)
	return takeError(gerr)
}

func (*Driver) DeviceEnumeratePendingSpawn(d driver.Handle) (driver.Handle, error) {
	var gerr *C.GError
	list := C.frida_device_enumerate_pending_spawn_sync(device(d), nil, &gerr)
	return result(unsafe.Pointer(list), gerr)
}

func (*Driver) DeviceEnumeratePendingChildren(d driver.Handle) (driver.Handle, error) {
	var gerr *C.GError
	list := C.frida_device_enumerate_pending_children_sync(device(d), nil, &gerr)
	return result(unsafe.Pointer(list), gerr)
}

func (*Driver) DeviceSpawn(d driver.Handle, program string, opts driver.Handle) (uint, error) {
	cprogram := cstr(program)
	defer free(cprogram)

	var gerr *C.GError
	pid := C.frida_device_spawn_sync(device(d), cprogram, (*C.FridaSpawnOptions)(ptr(opts)), nil, &gerr)
	return uint(pid), takeError(gerr)
}

func (*Driver) DeviceInput(d driver.Handle, pid uint, data []byte) error {
	bytes := newBytes(data)
	defer C.g_bytes_unref(bytes)

	var gerr *C.GError
	C.frida_device_input_sync(device(d), C.guint(pid), bytes, nil, &gerr)
	return takeError(gerr)
}

func (*Driver) DeviceResume(d driver.Handle, pid uint) error {
	var gerr *C.GError
	C.frida_device_resume_sync(device(d), C.guint(pid), nil, &gerr)
	return takeError(gerr)
}

func (*Driver) DeviceKill(d driver.Handle, pid uint) error {
	var gerr *C.GError
	C.frida_device_kill_sync(device(d), C.guint(pid), nil, &gerr)
	return takeError(gerr)
}

func (*Driver) DeviceAttach(d driver.Handle, pid uint, opts driver.Handle) (driver.Handle, error) {
	var gerr *C.GError
	s := C.frida_device_attach_sync(device(d), C.guint(pid), (*C.FridaSessionOptions)(ptr(opts)), nil, &gerr)
	return result(unsafe.Pointer(s), gerr)
}
