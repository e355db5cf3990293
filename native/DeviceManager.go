package native

/*
 #include "fridabind.h"
*/
import "C"
import (
	"unsafe"

	"github.com/dsjlzh/fridabind/driver"
)

func manager(h driver.Handle) *C.FridaDeviceManager {
	return (*C.FridaDeviceManager)(ptr(h))
}

func (*Driver) DeviceManagerNew() driver.Handle {
	return handle(C.frida_device_manager_new())
}

func (*Driver) DeviceManagerClose(m driver.Handle) error {
	var gerr *C.GError
	C.frida_device_manager_close_sync(manager(m), nil, &gerr)
	return takeError(gerr)
}

func (*Driver) DeviceManagerEnumerateDevices(m driver.Handle) (driver.Handle, error) {
	var gerr *C.GError
	list := C.frida_device_manager_enumerate_devices_sync(manager(m), nil, &gerr)
	return result(unsafe.Pointer(list), gerr)
}

func (*Driver) DeviceManagerGetDeviceByID(m driver.Handle, id string, timeout int) (driver.Handle, error) {
	cid := cstr(id)
	defer free(cid)

	var gerr *C.GError
	d := C.frida_device_manager_get_device_by_id_sync(manager(m), cid, C.gint(timeout), nil, &gerr)
	return result(unsafe.Pointer(d), gerr)
}

func (*Driver) DeviceManagerGetDeviceByType(m driver.Handle, t driver.DeviceType, timeout int) (driver.Handle, error) {
	var gerr *C.GError
	d := C.frida_device_manager_get_device_by_type_sync(manager(m), C.FridaDeviceType(t), C.gint(timeout), nil, &gerr)
	return result(unsafe.Pointer(d), gerr)
}

func (*Driver) DeviceManagerAddRemoteDevice(m driver.Handle, address string, opts driver.Handle) (driver.Handle, error) {
	caddr := cstr(address)
	defer free(caddr)

	var gerr *C.GError
	d := C.frida_device_manager_add_remote_device_sync(manager(m), caddr,
		(*C.FridaRemoteDeviceOptions)(ptr(opts)), nil, &gerr)
	return result(unsafe.Pointer(d), gerr)
}

func (*Driver) DeviceManagerRemoveRemoteDevice(m driver.Handle, address string) error {
	caddr := cstr(address)
	defer free(caddr)

	var gerr *C.GError
	C.frida_device_manager_remove_remote_device_sync(manager(m), caddr, nil, &gerr)
	return takeError(gerr)
}

func (*Driver) DeviceListSize(l driver.Handle) int {
	return int(C.frida_device_list_size((*C.FridaDeviceList)(ptr(l))))
}

// DeviceListGet drops the reference frida_device_list_get hands out; the
// list keeps the device alive.
func (*Driver) DeviceListGet(l driver.Handle, i int) driver.Handle {
	d := C.frida_device_list_get((*C.FridaDeviceList)(ptr(l)), C.gint(i))
	C.g_object_unref(C.gpointer(d))
	return handle(d)
}
