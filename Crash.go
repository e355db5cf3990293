package fridabind

import "github.com/dsjlzh/fridabind/driver"

// Crash describes the crash that ended a session, when there was one.
type Crash struct {
	Pid         uint
	ProcessName string
	Summary     string
	Report      string
}

func newCrash(c *driver.Crash) *Crash {
	if c == nil {
		return nil
	}
	return &Crash{
		Pid:         c.PID,
		ProcessName: c.ProcessName,
		Summary:     c.Summary,
		Report:      c.Report,
	}
}

type DetachReason = driver.DetachReason

const (
	DetachReasonApplicationRequested = driver.DetachReasonApplicationRequested
	DetachReasonProcessReplaced      = driver.DetachReasonProcessReplaced
	DetachReasonProcessTerminated    = driver.DetachReasonProcessTerminated
	DetachReasonConnectionTerminated = driver.DetachReasonConnectionTerminated
	DetachReasonDeviceLost           = driver.DetachReasonDeviceLost
)
