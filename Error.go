package fridabind

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/dsjlzh/fridabind/driver"
)

// ErrorCode classifies an Error. The values follow FridaError.
type ErrorCode = driver.ErrorCode

const (
	ErrorUnknown                = driver.ErrorUnknown
	ErrorServerNotRunning       = driver.ErrorServerNotRunning
	ErrorExecutableNotFound     = driver.ErrorExecutableNotFound
	ErrorExecutableNotSupported = driver.ErrorExecutableNotSupported
	ErrorProcessNotFound        = driver.ErrorProcessNotFound
	ErrorProcessNotResponding   = driver.ErrorProcessNotResponding
	ErrorInvalidArgument        = driver.ErrorInvalidArgument
	ErrorInvalidOperation       = driver.ErrorInvalidOperation
	ErrorPermissionDenied       = driver.ErrorPermissionDenied
	ErrorAddressInUse           = driver.ErrorAddressInUse
	ErrorTimedOut               = driver.ErrorTimedOut
	ErrorNotSupported           = driver.ErrorNotSupported
	ErrorProtocol               = driver.ErrorProtocol
	ErrorTransport              = driver.ErrorTransport
)

// Error is an operation failure reported by frida-core, or a lookup failure
// reported by this package. Msg is the native message verbatim.
type Error struct {
	Msg  string
	Code ErrorCode
}

func (err *Error) Error() string {
	return err.Msg
}

// NewErrorFromGError converts a driver error into an *Error. Other errors
// are returned unchanged.
func NewErrorFromGError(err error) error {
	if err == nil {
		return nil
	}
	var gerr *driver.Error
	if xerrors.As(err, &gerr) {
		e := &Error{Msg: gerr.Message, Code: gerr.Code}
		log.WithFields(logrus.Fields{
			"code": e.Code,
			"err":  e.Msg,
		}).Debug("frida error")
		return e
	}
	return err
}

// NewErrorAndLog builds a package authored *Error and logs it.
func NewErrorAndLog(msg string, code ErrorCode) *Error {
	err := &Error{Msg: msg, Code: code}
	log.WithFields(logrus.Fields{
		"code": code,
	}).Debug(msg)
	return err
}

var (
	ErrNoDriver        = xerrors.New("fridabind: no driver registered")
	ErrShutdown        = xerrors.New("fridabind: library has been shut down")
	ErrReleased        = xerrors.New("fridabind: native object already released")
	ErrIndexOutOfRange = xerrors.New("fridabind: index out of range")
	ErrUnsupported     = driver.ErrUnsupported

	ErrProcessNotFound = &Error{Msg: "process not found", Code: ErrorProcessNotFound}
	ErrDeviceNotFound  = &Error{Msg: "device not found", Code: ErrorInvalidArgument}
)
