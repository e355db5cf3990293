/*Package fridabind : frida golang binding

fridabind wraps the frida-core C API behind a Go object model. The native calls
go through a driver.Driver; the cgo implementation lives in the native package
and registers itself when imported:

	import _ "github.com/dsjlzh/fridabind/native"

Every wrapper owns exactly one native reference and releases it on Close (or
when the garbage collector finalizes it).
*/
package fridabind

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/dsjlzh/fridabind/driver"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.TextFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)
}

// SetLogger replaces the package logger.
func SetLogger(l *logrus.Logger) {
	if l != nil {
		log = l
	}
}

// Logger returns the package logger.
func Logger() *logrus.Logger {
	return log
}

// library is the process-wide state bound to one registered driver.
type library struct {
	drv driver.Driver
	cfg atomic.Pointer[Config]

	// mu orders the first native init against Shutdown.
	mu          sync.Mutex
	initialized bool
	down        bool
	refs        atomic.Int64
}

func (l *library) config() Config {
	if c := l.cfg.Load(); c != nil {
		return *c
	}
	return DefaultConfig()
}

var current atomic.Pointer[library]

// Register installs the driver used by every later call. Registering
// replaces the previous driver; wrappers created before keep talking to the
// driver that created them.
func Register(d driver.Driver) {
	if d == nil {
		panic("fridabind: Register driver is nil")
	}
	l := &library{drv: d}
	if old := current.Load(); old != nil {
		cfg := old.config()
		l.cfg.Store(&cfg)
	}
	current.Store(l)
}

func lib() (*library, error) {
	l := current.Load()
	if l == nil {
		return nil, ErrNoDriver
	}
	return l, nil
}

/*************
 * Lifecycle *
 *************/

// Init initializes the native library on first use and counts the caller.
// It is safe to call from independent components without coordination.
func Init() error {
	l, err := lib()
	if err != nil {
		return err
	}
	return l.init()
}

func (l *library) init() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.down {
		return ErrShutdown
	}
	if !l.initialized {
		log.Info("frida init ...")
		l.drv.Init()
		l.initialized = true
		log.WithFields(logrus.Fields{
			"version": l.drv.VersionString(),
		}).Info("frida init ok")
	}
	l.refs.Add(1)
	return nil
}

// Deinit drops one reference taken by Init. Dropping the last reference does
// not tear the native library down: independent users may still hold native
// objects, and frida_deinit is not reentrant. Use Shutdown at process exit.
func Deinit() {
	if l, err := lib(); err == nil {
		l.deinit()
	}
}

func (l *library) deinit() {
	for {
		n := l.refs.Load()
		if n <= 0 {
			return
		}
		if l.refs.CompareAndSwap(n, n-1) {
			if n == 1 {
				log.Debug("frida: last init reference released")
			}
			return
		}
	}
}

// initLibrary returns the registered library with one Init reference taken
// for the caller, to be dropped with its deinit.
func initLibrary() (*library, error) {
	l, err := lib()
	if err != nil {
		return nil, err
	}
	if err := l.init(); err != nil {
		return nil, err
	}
	return l, nil
}

// Shutdown runs the native teardown once. Init fails with ErrShutdown
// afterwards.
func Shutdown() {
	l, err := lib()
	if err != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.down {
		return
	}
	l.down = true
	if !l.initialized {
		return
	}
	if n := l.refs.Load(); n > 0 {
		log.WithFields(logrus.Fields{
			"refs": n,
		}).Warn("frida shutdown with outstanding init references")
	}
	log.Info("frida deinit")
	l.drv.Deinit()
}

// Version returns the version of the linked frida-core.
func Version() (major, minor, micro, nano uint, err error) {
	l, err := lib()
	if err != nil {
		return
	}
	major, minor, micro, nano = l.drv.Version()
	return
}

// VersionString returns the version of the linked frida-core as text.
func VersionString() (string, error) {
	l, err := lib()
	if err != nil {
		return "", err
	}
	return l.drv.VersionString(), nil
}

/*************
 * Functions *
 *************/

var (
	deviceManagerMu sync.Mutex
	deviceManager   *DeviceManager
)

// GetDeviceManager returns the shared device manager, creating it on first use.
func GetDeviceManager() (*DeviceManager, error) {
	deviceManagerMu.Lock()
	defer deviceManagerMu.Unlock()
	if deviceManager == nil || deviceManager.obj.released() {
		dm, err := NewDeviceManager()
		if err != nil {
			return nil, err
		}
		deviceManager = dm
	}
	return deviceManager, nil
}

// attach(target)
func Attach(target string) (*Session, error) {
	log.WithFields(logrus.Fields{
		"target": target,
	}).Debug("attach")

	d, err := GetLocalDevice()
	if err != nil {
		return nil, err
	}
	defer d.Close()
	return d.AttachByName(target, nil)
}

// enumerate_devices()
func EnumerateDevices() (*DeviceList, error) {
	dm, err := GetDeviceManager()
	if err != nil {
		return nil, err
	}
	return dm.EnumerateDevices()
}

// get_device(id, timeout=0)
func GetDevice(id string) (*Device, error) {
	dm, err := GetDeviceManager()
	if err != nil {
		return nil, err
	}
	return dm.GetDeviceByID(id, dm.timeout())
}

// get_local_device()
func GetLocalDevice() (*Device, error) {
	dm, err := GetDeviceManager()
	if err != nil {
		return nil, err
	}
	return dm.GetLocalDevice()
}

// get_usb_device()
func GetUSBDevice() (*Device, error) {
	dm, err := GetDeviceManager()
	if err != nil {
		return nil, err
	}
	return dm.GetUSBDevice()
}

// get_remote_device()
func GetRemoteDevice() (*Device, error) {
	dm, err := GetDeviceManager()
	if err != nil {
		return nil, err
	}
	return dm.GetRemoteDevice()
}
