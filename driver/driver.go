/*Package driver : the native boundary of fridabind.

A Driver exposes one method per frida-core function the binding calls. Handles
are opaque addresses of reference-counted native objects.

Ownership conventions, shared by every implementation:
  - methods that create or look up a single object (attach, create script,
    get device by id, find process, ...) and every enumerate method return a
    handle the caller owns one reference to;
  - *ListGet methods return a borrowed handle that stays valid while the list
    is alive; the caller must Ref it to keep it;
  - Unref releases one reference;
  - a method that fails returns a zero handle. A native result produced
    together with an error is released by the driver before it returns.
*/
package driver

import (
	"errors"
	"fmt"
)

// Handle is the address of a native object. Zero means none.
type Handle uintptr

// ErrUnsupported is returned when the linked frida-core does not provide an
// operation or a named property.
var ErrUnsupported = errors.New("not supported by the linked frida-core")

// ErrorCode mirrors FridaError.
type ErrorCode int

const (
	ErrorUnknown ErrorCode = iota - 1
	ErrorServerNotRunning
	ErrorExecutableNotFound
	ErrorExecutableNotSupported
	ErrorProcessNotFound
	ErrorProcessNotResponding
	ErrorInvalidArgument
	ErrorInvalidOperation
	ErrorPermissionDenied
	ErrorAddressInUse
	ErrorTimedOut
	ErrorNotSupported
	ErrorProtocol
	ErrorTransport
)

var errorCodeNames = map[ErrorCode]string{
	ErrorUnknown:                "unknown",
	ErrorServerNotRunning:       "server not running",
	ErrorExecutableNotFound:     "executable not found",
	ErrorExecutableNotSupported: "executable not supported",
	ErrorProcessNotFound:        "process not found",
	ErrorProcessNotResponding:   "process not responding",
	ErrorInvalidArgument:        "invalid argument",
	ErrorInvalidOperation:       "invalid operation",
	ErrorPermissionDenied:       "permission denied",
	ErrorAddressInUse:           "address in use",
	ErrorTimedOut:               "timed out",
	ErrorNotSupported:           "not supported",
	ErrorProtocol:               "protocol",
	ErrorTransport:              "transport",
}

func (c ErrorCode) String() string {
	if s, ok := errorCodeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// Error is a copy of a native GError. The native error has already been
// freed when a driver returns it.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

type DeviceType int

const (
	DeviceTypeLocal DeviceType = iota
	DeviceTypeRemote
	DeviceTypeUSB
)

type ChildOrigin int

const (
	ChildOriginFork ChildOrigin = iota
	ChildOriginExec
	ChildOriginSpawn
)

type DetachReason int

const (
	DetachReasonApplicationRequested DetachReason = iota + 1
	DetachReasonProcessReplaced
	DetachReasonProcessTerminated
	DetachReasonConnectionTerminated
	DetachReasonDeviceLost
)

type FileMonitorEvent int

const (
	FileChanged FileMonitorEvent = iota
	FileChangesDoneHint
	FileDeleted
	FileCreated
	FileAttributeChanged
	FilePreUnmount
	FileUnmounted
	FileMoved
	FileRenamed
	FileMovedIn
	FileMovedOut
)

// OptionsKind selects the native options class to instantiate.
type OptionsKind int

const (
	ApplicationQueryOptions OptionsKind = iota
	FrontmostQueryOptions
	ProcessQueryOptions
	ProcessMatchOptions
	RemoteDeviceOptions
	SessionOptions
	SpawnOptions
	ScriptOptions
)

// Crash is a copy of a native FridaCrash.
type Crash struct {
	PID         uint
	ProcessName string
	Summary     string
	Report      string
}

// Signal callbacks run on a native thread. They must copy what they need
// and return quickly.
type (
	MessageFunc     func(message string, data []byte)
	DetachedFunc    func(reason DetachReason, crash *Crash)
	FileChangedFunc func(path, otherPath string, event FileMonitorEvent)
)

// SignalID identifies a connected signal handler.
type SignalID uint64

type Driver interface {
	Runtime
	DeviceManagers
	Devices
	Processes
	Applications
	Spawns
	Children
	Sessions
	Scripts
	Options
	FileMonitors
}

type Runtime interface {
	Init()
	Deinit()
	Version() (major, minor, micro, nano uint)
	VersionString() string
	Ref(h Handle)
	Unref(h Handle)
	Disconnect(h Handle, id SignalID)
}

type DeviceManagers interface {
	DeviceManagerNew() Handle
	DeviceManagerClose(m Handle) error
	DeviceManagerEnumerateDevices(m Handle) (Handle, error)
	DeviceManagerGetDeviceByID(m Handle, id string, timeout int) (Handle, error)
	DeviceManagerGetDeviceByType(m Handle, t DeviceType, timeout int) (Handle, error)
	DeviceManagerAddRemoteDevice(m Handle, address string, opts Handle) (Handle, error)
	DeviceManagerRemoveRemoteDevice(m Handle, address string) error
	DeviceListSize(l Handle) int
	DeviceListGet(l Handle, i int) Handle
}

type Devices interface {
	DeviceID(d Handle) string
	DeviceName(d Handle) string
	DeviceType(d Handle) DeviceType
	DeviceIsLost(d Handle) bool
	DeviceQuerySystemParameters(d Handle) (map[string]any, error)
	DeviceGetFrontmostApplication(d Handle, opts Handle) (Handle, error)
	DeviceEnumerateApplications(d Handle, opts Handle) (Handle, error)
	DeviceEnumerateProcesses(d Handle, opts Handle) (Handle, error)
	DeviceFindProcessByPID(d Handle, pid uint, opts Handle) (Handle, error)
	DeviceFindProcessByName(d Handle, name string, opts Handle) (Handle, error)
	DeviceEnableSpawnGating(d Handle) error
	DeviceDisableSpawnGating(d Handle) error
	DeviceEnumeratePendingSpawn(d Handle) (Handle, error)
	DeviceEnumeratePendingChildren(d Handle) (Handle, error)
	DeviceSpawn(d Handle, program string, opts Handle) (uint, error)
	DeviceInput(d Handle, pid uint, data []byte) error
	DeviceResume(d Handle, pid uint) error
	DeviceKill(d Handle, pid uint) error
	DeviceAttach(d Handle, pid uint, opts Handle) (Handle, error)
}

type Processes interface {
	ProcessListSize(l Handle) int
	ProcessListGet(l Handle, i int) Handle
	ProcessPID(p Handle) uint
	ProcessName(p Handle) string
	ProcessParameters(p Handle) map[string]any
}

type Applications interface {
	ApplicationListSize(l Handle) int
	ApplicationListGet(l Handle, i int) Handle
	ApplicationIdentifier(a Handle) string
	ApplicationName(a Handle) string
	ApplicationPID(a Handle) uint
	ApplicationParameters(a Handle) map[string]any
}

type Spawns interface {
	SpawnListSize(l Handle) int
	SpawnListGet(l Handle, i int) Handle
	SpawnPID(s Handle) uint
	// SpawnIdentifier reports false when the native identifier is null.
	SpawnIdentifier(s Handle) (string, bool)
}

type Children interface {
	ChildListSize(l Handle) int
	ChildListGet(l Handle, i int) Handle
	ChildPID(c Handle) uint
	ChildParentPID(c Handle) uint
	ChildOrigin(c Handle) ChildOrigin
	ChildIdentifier(c Handle) (string, bool)
	ChildPath(c Handle) (string, bool)
	ChildArgv(c Handle) []string
	ChildEnvp(c Handle) []string
}

type Sessions interface {
	SessionPID(s Handle) uint
	SessionPersistTimeout(s Handle) uint
	SessionIsDetached(s Handle) bool
	SessionDetach(s Handle) error
	SessionResume(s Handle) error
	SessionEnableChildGating(s Handle) error
	SessionDisableChildGating(s Handle) error
	SessionCreateScript(s Handle, source string, opts Handle) (Handle, error)
	SessionCreateScriptFromBytes(s Handle, bytes []byte, opts Handle) (Handle, error)
	SessionCompileScript(s Handle, source string, opts Handle) ([]byte, error)
	SessionConnectDetached(s Handle, fn DetachedFunc) SignalID
}

type Scripts interface {
	ScriptIsDestroyed(s Handle) bool
	ScriptLoad(s Handle) error
	ScriptUnload(s Handle) error
	ScriptEternalize(s Handle) error
	// ScriptPost sends message to the script. A nil data posts no payload;
	// a non-nil (possibly empty) data posts a payload.
	ScriptPost(s Handle, message string, data []byte)
	ScriptConnectMessage(s Handle, fn MessageFunc) SignalID
}

// Options manipulates named properties of options objects. Unknown
// properties yield ErrUnsupported.
type Options interface {
	OptionsNew(kind OptionsKind) Handle
	OptionsSetString(o Handle, name, value string) error
	OptionsString(o Handle, name string) (string, bool, error)
	OptionsSetInt(o Handle, name string, value int) error
	OptionsInt(o Handle, name string) (int, error)
	OptionsSetStrings(o Handle, name string, values []string) error
	OptionsStrings(o Handle, name string) ([]string, error)
	OptionsSelectIdentifier(o Handle, identifier string) error
	OptionsSelectPID(o Handle, pid uint) error
}

type FileMonitors interface {
	FileMonitorNew(path string) Handle
	FileMonitorEnable(m Handle) error
	FileMonitorDisable(m Handle) error
	FileMonitorConnectChange(m Handle, fn FileChangedFunc) SignalID
}

func (t DeviceType) String() string {
	switch t {
	case DeviceTypeLocal:
		return "local"
	case DeviceTypeRemote:
		return "remote"
	case DeviceTypeUSB:
		return "usb"
	}
	return fmt.Sprintf("DeviceType(%d)", int(t))
}

func (o ChildOrigin) String() string {
	switch o {
	case ChildOriginFork:
		return "fork"
	case ChildOriginExec:
		return "exec"
	case ChildOriginSpawn:
		return "spawn"
	}
	return fmt.Sprintf("ChildOrigin(%d)", int(o))
}

func (r DetachReason) String() string {
	switch r {
	case DetachReasonApplicationRequested:
		return "application requested"
	case DetachReasonProcessReplaced:
		return "process replaced"
	case DetachReasonProcessTerminated:
		return "process terminated"
	case DetachReasonConnectionTerminated:
		return "connection terminated"
	case DetachReasonDeviceLost:
		return "device lost"
	}
	return fmt.Sprintf("DetachReason(%d)", int(r))
}

func (e FileMonitorEvent) String() string {
	switch e {
	case FileChanged:
		return "changed"
	case FileChangesDoneHint:
		return "changes done hint"
	case FileDeleted:
		return "deleted"
	case FileCreated:
		return "created"
	case FileAttributeChanged:
		return "attribute changed"
	case FilePreUnmount:
		return "pre unmount"
	case FileUnmounted:
		return "unmounted"
	case FileMoved:
		return "moved"
	case FileRenamed:
		return "renamed"
	case FileMovedIn:
		return "moved in"
	case FileMovedOut:
		return "moved out"
	}
	return "unknown"
}
