package fridabind

import (
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dsjlzh/fridabind/driver"
)

// DeviceManager enumerates the devices frida can instrument. It holds an
// Init reference for its lifetime.
type DeviceManager struct {
	obj *object
}

func NewDeviceManager() (*DeviceManager, error) {
	l, err := initLibrary()
	if err != nil {
		return nil, err
	}
	log.Info("DeviceManager: new ...")
	h := l.drv.DeviceManagerNew()
	if h == 0 {
		l.deinit()
		return nil, NewErrorAndLog("DeviceManager: new failed", ErrorUnknown)
	}
	log.Info("DeviceManager: new ok")
	obj := adopt(l.drv, h, "device manager")
	obj.shutdown = func(drv driver.Driver, h driver.Handle) {
		if err := drv.DeviceManagerClose(h); err != nil {
			log.WithFields(logrus.Fields{
				"err": err,
			}).Warn("DeviceManager: close failed")
		}
	}
	obj.onRelease(l.deinit)
	dm := &DeviceManager{obj: obj}
	runtime.SetFinalizer(dm, (*DeviceManager).Close)
	return dm, nil
}

// Close closes the manager and releases it. Failures of the native close
// are logged, not returned.
func (dm *DeviceManager) Close() error {
	if dm.obj.release() {
		log.Info("DeviceManager: closed")
	}
	return nil
}

func (dm *DeviceManager) timeout() int {
	return currentConfig().DeviceTimeout
}

func (dm *DeviceManager) EnumerateDevices() (dl *DeviceList, err error) {
	err = dm.obj.use(func(drv driver.Driver, h driver.Handle) error {
		lh, err := drv.DeviceManagerEnumerateDevices(h)
		if err != nil {
			return failed(drv, lh, err)
		}
		dl = newDeviceList(adopt(drv, lh, "device list"))
		return nil
	})
	return
}

// GetDeviceByID waits up to timeout milliseconds for the device to appear.
func (dm *DeviceManager) GetDeviceByID(id string, timeout int) (d *Device, err error) {
	log.WithFields(logrus.Fields{
		"id":      id,
		"timeout": timeout,
	}).Debug("DeviceManager: get device by id")
	err = dm.obj.use(func(drv driver.Driver, h driver.Handle) error {
		dh, err := drv.DeviceManagerGetDeviceByID(h, id, timeout)
		if err != nil {
			return failed(drv, dh, err)
		}
		d = newDevice(adopt(drv, dh, "device"))
		return nil
	})
	return
}

// GetDeviceByType waits up to timeout milliseconds for a device of type t.
func (dm *DeviceManager) GetDeviceByType(t DeviceType, timeout int) (d *Device, err error) {
	log.WithFields(logrus.Fields{
		"type":    t,
		"timeout": timeout,
	}).Debug("DeviceManager: get device by type")
	err = dm.obj.use(func(drv driver.Driver, h driver.Handle) error {
		dh, err := drv.DeviceManagerGetDeviceByType(h, t, timeout)
		if err != nil {
			return failed(drv, dh, err)
		}
		d = newDevice(adopt(drv, dh, "device"))
		return nil
	})
	return
}

// GetDeviceMatching returns the first enumerated device for which predicate
// holds, or ErrDeviceNotFound.
func (dm *DeviceManager) GetDeviceMatching(predicate func(*Device) bool) (*Device, error) {
	dl, err := dm.EnumerateDevices()
	if err != nil {
		return nil, err
	}
	defer dl.Close()

	for _, d := range dl.All() {
		if predicate(d) {
			return d, nil
		}
		d.Close()
	}
	return nil, ErrDeviceNotFound
}

func (dm *DeviceManager) GetLocalDevice() (*Device, error) {
	return dm.GetDeviceMatching(func(d *Device) bool {
		return d.Type() == DeviceTypeLocal
	})
}

func (dm *DeviceManager) GetUSBDevice() (*Device, error) {
	return dm.GetDeviceMatching(func(d *Device) bool {
		return d.Type() == DeviceTypeUSB
	})
}

func (dm *DeviceManager) GetRemoteDevice() (*Device, error) {
	return dm.GetDeviceMatching(func(d *Device) bool {
		return d.Type() == DeviceTypeRemote
	})
}

// GetDeviceByName matches device names case-insensitively.
func (dm *DeviceManager) GetDeviceByName(name string) (*Device, error) {
	return dm.GetDeviceMatching(func(d *Device) bool {
		return strings.EqualFold(d.Name(), name)
	})
}

// AddRemoteDevice connects to a frida-server at address ("host:port").
func (dm *DeviceManager) AddRemoteDevice(address string, opts *RemoteDeviceOptions) (d *Device, err error) {
	log.WithFields(logrus.Fields{
		"address": address,
	}).Debug("DeviceManager: add remote device")
	err = dm.obj.use(func(drv driver.Driver, h driver.Handle) error {
		return withHandle(opts.object(), func(oh driver.Handle) error {
			dh, err := drv.DeviceManagerAddRemoteDevice(h, address, oh)
			if err != nil {
				return failed(drv, dh, err)
			}
			d = newDevice(adopt(drv, dh, "device"))
			return nil
		})
	})
	return
}

func (dm *DeviceManager) RemoveRemoteDevice(address string) error {
	return dm.obj.use(func(drv driver.Driver, h driver.Handle) error {
		return NewErrorFromGError(drv.DeviceManagerRemoveRemoteDevice(h, address))
	})
}
