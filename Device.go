package fridabind

import (
	"runtime"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/dsjlzh/fridabind/driver"
)

type DeviceType = driver.DeviceType

const (
	DeviceTypeLocal  = driver.DeviceTypeLocal
	DeviceTypeRemote = driver.DeviceTypeRemote
	DeviceTypeUSB    = driver.DeviceTypeUSB
)

type Device struct {
	obj *object
}

func newDevice(obj *object) *Device {
	d := &Device{obj: obj}
	runtime.SetFinalizer(d, (*Device).Close)
	return d
}

// Close releases the device.
func (d *Device) Close() error {
	d.obj.release()
	return nil
}

func (d *Device) ID() (id string) {
	d.obj.peek(func(drv driver.Driver, h driver.Handle) {
		id = drv.DeviceID(h)
	})
	return
}

func (d *Device) Name() (name string) {
	d.obj.peek(func(drv driver.Driver, h driver.Handle) {
		name = drv.DeviceName(h)
	})
	return
}

func (d *Device) Type() (t DeviceType) {
	d.obj.peek(func(drv driver.Driver, h driver.Handle) {
		t = drv.DeviceType(h)
	})
	return
}

func (d *Device) IsLost() (lost bool) {
	d.obj.peek(func(drv driver.Driver, h driver.Handle) {
		lost = drv.DeviceIsLost(h)
	})
	return
}

func (d *Device) String() string {
	return d.Name() + " (" + d.ID() + ", " + d.Type().String() + ")"
}

// QuerySystemParameters returns the device's system description, e.g.
// "os", "platform", "arch" and "access".
func (d *Device) QuerySystemParameters() (params map[string]any, err error) {
	err = d.obj.use(func(drv driver.Driver, h driver.Handle) error {
		params, err = drv.DeviceQuerySystemParameters(h)
		if err != nil {
			params = nil
		}
		return NewErrorFromGError(err)
	})
	return
}

type SystemInfo struct {
	Platform string `mapstructure:"platform"`
	Arch     string `mapstructure:"arch"`
	Access   string `mapstructure:"access"`
	Name     string `mapstructure:"name"`
	OS       struct {
		ID      string `mapstructure:"id"`
		Name    string `mapstructure:"name"`
		Version string `mapstructure:"version"`
	} `mapstructure:"os"`
}

// SystemInfo decodes QuerySystemParameters into a SystemInfo.
func (d *Device) SystemInfo() (*SystemInfo, error) {
	params, err := d.QuerySystemParameters()
	if err != nil {
		return nil, err
	}
	info := new(SystemInfo)
	if err := mapstructure.WeakDecode(params, info); err != nil {
		return nil, xerrors.Errorf("decode system parameters: %w", err)
	}
	return info, nil
}

// FrontmostApplication returns nil without error when no application is in
// the foreground.
func (d *Device) FrontmostApplication(opts *FrontmostQueryOptions) (a *Application, err error) {
	err = d.obj.use(func(drv driver.Driver, h driver.Handle) error {
		return withHandle(opts.object(), func(oh driver.Handle) error {
			ah, err := drv.DeviceGetFrontmostApplication(h, oh)
			if err != nil {
				return failed(drv, ah, err)
			}
			if ah != 0 {
				a = newApplication(adopt(drv, ah, "application"))
			}
			return nil
		})
	})
	return
}

func (d *Device) EnumerateApplications(opts *ApplicationQueryOptions) (al *ApplicationList, err error) {
	err = d.obj.use(func(drv driver.Driver, h driver.Handle) error {
		return withHandle(opts.object(), func(oh driver.Handle) error {
			lh, err := drv.DeviceEnumerateApplications(h, oh)
			if err != nil {
				return failed(drv, lh, err)
			}
			al = newApplicationList(adopt(drv, lh, "application list"))
			return nil
		})
	})
	return
}

func (d *Device) EnumerateProcesses(opts *ProcessQueryOptions) (pl *ProcessList, err error) {
	err = d.obj.use(func(drv driver.Driver, h driver.Handle) error {
		return withHandle(opts.object(), func(oh driver.Handle) error {
			lh, err := drv.DeviceEnumerateProcesses(h, oh)
			if err != nil {
				return failed(drv, lh, err)
			}
			pl = newProcessList(adopt(drv, lh, "process list"))
			return nil
		})
	})
	return
}

// FindProcessByPID returns nil without error when no process matches.
func (d *Device) FindProcessByPID(pid uint, opts *ProcessMatchOptions) (p *Process, err error) {
	err = d.obj.use(func(drv driver.Driver, h driver.Handle) error {
		return withHandle(opts.object(), func(oh driver.Handle) error {
			ph, err := drv.DeviceFindProcessByPID(h, pid, oh)
			if err != nil {
				return failed(drv, ph, err)
			}
			if ph != 0 {
				p = newProcess(adopt(drv, ph, "process"))
			}
			return nil
		})
	})
	return
}

// FindProcessByName returns nil without error when no process matches.
func (d *Device) FindProcessByName(name string, opts *ProcessMatchOptions) (p *Process, err error) {
	err = d.obj.use(func(drv driver.Driver, h driver.Handle) error {
		return withHandle(opts.object(), func(oh driver.Handle) error {
			ph, err := drv.DeviceFindProcessByName(h, name, oh)
			if err != nil {
				return failed(drv, ph, err)
			}
			if ph != 0 {
				p = newProcess(adopt(drv, ph, "process"))
			}
			return nil
		})
	})
	return
}

// PidOf returns the pid of the first process whose name contains target.
func (d *Device) PidOf(target string) (pid uint, err error) {
	pl, err := d.EnumerateProcesses(nil)
	if err != nil {
		return
	}
	defer pl.Close()

	for _, p := range pl.All() {
		name := p.Name()
		found := strings.Contains(name, target)
		if found {
			pid = p.PID()
		}
		p.Close()
		if found {
			log.WithFields(logrus.Fields{
				"name": name,
				"pid":  pid,
			}).Debug("Device: found process")
			return
		}
	}
	err = ErrProcessNotFound
	return
}

func (d *Device) Attach(pid uint, opts *SessionOptions) (s *Session, err error) {
	log.WithFields(logrus.Fields{
		"pid": pid,
	}).Debug("Device: attach")
	err = d.obj.use(func(drv driver.Driver, h driver.Handle) error {
		return withHandle(opts.object(), func(oh driver.Handle) error {
			sh, err := drv.DeviceAttach(h, pid, oh)
			if err != nil {
				return failed(drv, sh, err)
			}
			s = newSession(adopt(drv, sh, "session"))
			return nil
		})
	})
	return
}

// AttachByName attaches to the first process, in enumeration order, whose
// name contains name. Every call enumerates afresh.
func (d *Device) AttachByName(name string, opts *SessionOptions) (*Session, error) {
	pid, err := d.PidOf(name)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"name": name,
		"pid":  pid,
	}).Info("Device: attach process")
	return d.Attach(pid, opts)
}

func (d *Device) Spawn(program string, opts *SpawnOptions) (pid uint, err error) {
	log.WithFields(logrus.Fields{
		"program": program,
	}).Debug("Device: spawn")
	err = d.obj.use(func(drv driver.Driver, h driver.Handle) error {
		return withHandle(opts.object(), func(oh driver.Handle) error {
			pid, err = drv.DeviceSpawn(h, program, oh)
			return NewErrorFromGError(err)
		})
	})
	return
}

// SpawnArgs spawns program with argv [program, args...].
func (d *Device) SpawnArgs(program string, args ...string) (uint, error) {
	opts, err := NewSpawnOptions()
	if err != nil {
		return 0, err
	}
	defer opts.Close()
	if err := opts.SetArgv(append([]string{program}, args...)); err != nil {
		return 0, err
	}
	return d.Spawn(program, opts)
}

// Input writes data to the stdin of a process spawned with piped stdio.
func (d *Device) Input(pid uint, data []byte) error {
	return d.obj.use(func(drv driver.Driver, h driver.Handle) error {
		return NewErrorFromGError(drv.DeviceInput(h, pid, data))
	})
}

func (d *Device) Resume(pid uint) error {
	log.WithFields(logrus.Fields{
		"pid": pid,
	}).Debug("Device: resume")
	return d.obj.use(func(drv driver.Driver, h driver.Handle) error {
		return NewErrorFromGError(drv.DeviceResume(h, pid))
	})
}

func (d *Device) Kill(pid uint) error {
	log.WithFields(logrus.Fields{
		"pid": pid,
	}).Debug("Device: kill")
	return d.obj.use(func(drv driver.Driver, h driver.Handle) error {
		return NewErrorFromGError(drv.DeviceKill(h, pid))
	})
}

func (d *Device) EnableSpawnGating() error {
	return d.obj.use(func(drv driver.Driver, h driver.Handle) error {
		return NewErrorFromGError(drv.DeviceEnableSpawnGating(h))
	})
}

func (d *Device) DisableSpawnGating() error {
	return d.obj.use(func(drv driver.Driver, h driver.Handle) error {
		return NewErrorFromGError(drv.DeviceDisableSpawnGating(h))
	})
}

func (d *Device) EnumeratePendingSpawn() (sl *SpawnList, err error) {
	err = d.obj.use(func(drv driver.Driver, h driver.Handle) error {
		lh, err := drv.DeviceEnumeratePendingSpawn(h)
		if err != nil {
			return failed(drv, lh, err)
		}
		sl = newSpawnList(adopt(drv, lh, "spawn list"))
		return nil
	})
	return
}

func (d *Device) EnumeratePendingChildren() (cl *ChildList, err error) {
	err = d.obj.use(func(drv driver.Driver, h driver.Handle) error {
		lh, err := drv.DeviceEnumeratePendingChildren(h)
		if err != nil {
			return failed(drv, lh, err)
		}
		cl = newChildList(adopt(drv, lh, "child list"))
		return nil
	})
	return
}

// DeviceList is a snapshot of the devices known at enumeration time.
type DeviceList struct {
	listView[Device]
}

func newDeviceList(obj *object) *DeviceList {
	dl := &DeviceList{listView[Device]{
		obj: obj,
		size: func(drv driver.Driver, l driver.Handle) int {
			return drv.DeviceListSize(l)
		},
		get: func(drv driver.Driver, l driver.Handle, i int) driver.Handle {
			return drv.DeviceListGet(l, i)
		},
		wrap: newDevice,
	}}
	runtime.SetFinalizer(dl, (*DeviceList).Close)
	return dl
}
