/*Package native : cgo driver for fridabind

Importing the package links frida-core and registers the driver:

	import _ "github.com/dsjlzh/fridabind/native"

The frida-core devkit (frida-core.h and libfrida-core.a) is expected under
libs/ next to this file.
*/
package native

/*
 #cgo CFLAGS: -g -O0 -w -I${SRCDIR} -I${SRCDIR}/libs
 #cgo LDFLAGS: -static-libgcc -L${SRCDIR}/libs -lfrida-core -ldl -lm -lrt -lresolv -lpthread -Wl,--export-dynamic
 #include "fridabind.h"
*/
import "C"
import (
	"os"
	"unsafe"

	"github.com/sirupsen/logrus"

	"github.com/dsjlzh/fridabind"
	"github.com/dsjlzh/fridabind/driver"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.TextFormatter{})
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.InfoLevel)
}

func init() {
	fridabind.Register(New())
}

// Driver calls frida-core directly. It is stateless; every handle it
// returns is a GObject address.
type Driver struct{}

var _ driver.Driver = (*Driver)(nil)

func New() *Driver {
	return &Driver{}
}

func ptr(h driver.Handle) unsafe.Pointer {
	return unsafe.Pointer(uintptr(h))
}

func handle[T any](p *T) driver.Handle {
	return driver.Handle(uintptr(unsafe.Pointer(p)))
}

func (*Driver) Init() {
	log.Debug("frida init")
	C.frida_init()
}

func (*Driver) Deinit() {
	log.Debug("frida deinit")
	C.frida_deinit()
}

func (*Driver) Version() (major, minor, micro, nano uint) {
	var a, b, c, d C.guint
	C.frida_version(&a, &b, &c, &d)
	return uint(a), uint(b), uint(c), uint(d)
}

func (*Driver) VersionString() string {
	return gostr(C.frida_version_string())
}

func (*Driver) Ref(h driver.Handle) {
	C.g_object_ref(C.gpointer(ptr(h)))
}

func (*Driver) Unref(h driver.Handle) {
	C.frida_unref(C.gpointer(ptr(h)))
}

func (*Driver) Disconnect(h driver.Handle, id driver.SignalID) {
	C.fb_disconnect(C.gpointer(ptr(h)), C.gulong(id))
}
