package fakefrida

import (
	"fmt"
	"strings"

	"github.com/dsjlzh/fridabind/driver"
)

/***********
 * Runtime *
 ***********/

func (d *Driver) Init() {
	d.mu.Lock()
	d.enter("Init")
	d.mu.Unlock()
}

func (d *Driver) Deinit() {
	d.mu.Lock()
	d.enter("Deinit")
	d.mu.Unlock()
}

func (d *Driver) Version() (major, minor, micro, nano uint) {
	return d.Major, d.Minor, d.Micro, d.Nano
}

func (d *Driver) VersionString() string {
	return fmt.Sprintf("%d.%d.%d", d.Major, d.Minor, d.Micro)
}

func (d *Driver) Ref(h driver.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enter("Ref")
	if o := d.get(h, "", "Ref"); o != nil {
		o.refs++
	}
}

func (d *Driver) Unref(h driver.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enter("Unref")
	d.unref(h)
}

func (d *Driver) Disconnect(h driver.Handle, id driver.SignalID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enter("Disconnect")
	if o := d.get(h, "", "Disconnect"); o != nil {
		if _, ok := o.signals[id]; !ok {
			d.violation("Disconnect: signal %d not connected", id)
		}
		delete(o.signals, id)
	}
}

func (d *Driver) connect(h driver.Handle, kind, op string, fn any) driver.SignalID {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enter(op)
	o := d.get(h, kind, op)
	if o == nil {
		return 0
	}
	if o.signals == nil {
		o.signals = make(map[driver.SignalID]any)
	}
	d.nextSig++
	o.signals[d.nextSig] = fn
	return d.nextSig
}

/******************
 * Device manager *
 ******************/

func (d *Driver) DeviceManagerNew() driver.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.enter("DeviceManagerNew") != nil {
		return 0
	}
	return d.alloc(&object{kind: "device manager"})
}

func (d *Driver) DeviceManagerClose(m driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("DeviceManagerClose"); err != nil {
		return err
	}
	d.get(m, "device manager", "DeviceManagerClose")
	return nil
}

func (d *Driver) DeviceManagerEnumerateDevices(m driver.Handle) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("DeviceManagerEnumerateDevices"); err != nil {
		return 0, err
	}
	if d.get(m, "device manager", "DeviceManagerEnumerateDevices") == nil {
		return 0, nil
	}
	items := make([]driver.Handle, 0, len(d.devices))
	for _, h := range d.devices {
		if _, ok := d.objects[h]; ok {
			d.objects[h].refs++
			items = append(items, h)
		}
	}
	return d.newList("device", items), nil
}

func (d *Driver) findDevice(match func(*DeviceSpec) bool) driver.Handle {
	for _, h := range d.devices {
		if o, ok := d.objects[h]; ok && match(o.dev) {
			o.refs++
			return h
		}
	}
	return 0
}

func (d *Driver) DeviceManagerGetDeviceByID(m driver.Handle, id string, timeout int) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("DeviceManagerGetDeviceByID"); err != nil {
		return 0, err
	}
	d.get(m, "device manager", "DeviceManagerGetDeviceByID")
	if h := d.findDevice(func(s *DeviceSpec) bool { return s.ID == id }); h != 0 {
		return h, nil
	}
	return 0, &driver.Error{Code: driver.ErrorInvalidArgument, Message: "Device not found"}
}

func (d *Driver) DeviceManagerGetDeviceByType(m driver.Handle, t driver.DeviceType, timeout int) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("DeviceManagerGetDeviceByType"); err != nil {
		return 0, err
	}
	d.get(m, "device manager", "DeviceManagerGetDeviceByType")
	if h := d.findDevice(func(s *DeviceSpec) bool { return s.Type == t }); h != 0 {
		return h, nil
	}
	return 0, &driver.Error{Code: driver.ErrorInvalidArgument, Message: "Device not found"}
}

func (d *Driver) DeviceManagerAddRemoteDevice(m driver.Handle, address string, opts driver.Handle) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("DeviceManagerAddRemoteDevice"); err != nil {
		return 0, err
	}
	if d.get(m, "device manager", "DeviceManagerAddRemoteDevice") == nil {
		return 0, nil
	}
	if opts != 0 {
		d.get(opts, "options", "DeviceManagerAddRemoteDevice")
	}
	spec := &DeviceSpec{ID: "socket@" + address, Name: address, Type: driver.DeviceTypeRemote}
	h := d.alloc(&object{kind: "device", dev: spec})
	d.devices = append(d.devices, h)
	d.objects[h].refs++
	return h, nil
}

func (d *Driver) DeviceManagerRemoveRemoteDevice(m driver.Handle, address string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("DeviceManagerRemoveRemoteDevice"); err != nil {
		return err
	}
	d.get(m, "device manager", "DeviceManagerRemoveRemoteDevice")
	for i, h := range d.devices {
		o, ok := d.objects[h]
		if ok && o.dev.ID == "socket@"+address {
			o.dev.Lost = true
			d.devices = append(d.devices[:i], d.devices[i+1:]...)
			d.unref(h)
			return nil
		}
	}
	return &driver.Error{Code: driver.ErrorInvalidArgument, Message: "Device not found"}
}

func (d *Driver) DeviceListSize(l driver.Handle) int {
	return d.listSize(l, "device", "DeviceListSize")
}

func (d *Driver) DeviceListGet(l driver.Handle, i int) driver.Handle {
	return d.listGet(l, i, "device", "DeviceListGet")
}

/**********
 * Device *
 **********/

func (d *Driver) device(h driver.Handle, op string) *DeviceSpec {
	d.enter(op)
	if o := d.get(h, "device", op); o != nil {
		return o.dev
	}
	return nil
}

func (d *Driver) DeviceID(h driver.Handle) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s := d.device(h, "DeviceID"); s != nil {
		return s.ID
	}
	return ""
}

func (d *Driver) DeviceName(h driver.Handle) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s := d.device(h, "DeviceName"); s != nil {
		return s.Name
	}
	return ""
}

func (d *Driver) DeviceType(h driver.Handle) driver.DeviceType {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s := d.device(h, "DeviceType"); s != nil {
		return s.Type
	}
	return 0
}

func (d *Driver) DeviceIsLost(h driver.Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s := d.device(h, "DeviceIsLost"); s != nil {
		return s.Lost
	}
	return false
}

func (d *Driver) DeviceQuerySystemParameters(h driver.Handle) (map[string]any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failures["DeviceQuerySystemParameters"]; err != nil {
		d.calls["DeviceQuerySystemParameters"]++
		return nil, err
	}
	if s := d.device(h, "DeviceQuerySystemParameters"); s != nil {
		return copyParams(s.Parameters), nil
	}
	return nil, nil
}

func (d *Driver) DeviceGetFrontmostApplication(h, opts driver.Handle) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("DeviceGetFrontmostApplication"); err != nil {
		return 0, err
	}
	s := d.device(h, "")
	if s == nil || s.Frontmost == "" {
		return 0, nil
	}
	for _, a := range s.Applications {
		if a.Identifier == s.Frontmost {
			return d.newApplication(a), nil
		}
	}
	return 0, nil
}

func (d *Driver) newApplication(a ApplicationSpec) driver.Handle {
	return d.alloc(&object{
		kind:       "application",
		identifier: a.Identifier,
		name:       a.Name,
		pid:        a.PID,
		params:     copyParams(a.Parameters),
	})
}

func (d *Driver) newProcess(p ProcessSpec) driver.Handle {
	return d.alloc(&object{
		kind:   "process",
		pid:    p.PID,
		name:   p.Name,
		params: copyParams(p.Parameters),
	})
}

func (d *Driver) DeviceEnumerateApplications(h, opts driver.Handle) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("DeviceEnumerateApplications"); err != nil {
		return 0, err
	}
	s := d.device(h, "")
	if s == nil {
		return 0, nil
	}
	var selected []any
	if opts != 0 {
		if o := d.get(opts, "options", "DeviceEnumerateApplications"); o != nil {
			selected = o.selected
		}
	}
	var items []driver.Handle
	for _, a := range s.Applications {
		if len(selected) > 0 && !contains(selected, a.Identifier) {
			continue
		}
		items = append(items, d.newApplication(a))
	}
	return d.newList("application", items), nil
}

func (d *Driver) DeviceEnumerateProcesses(h, opts driver.Handle) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("DeviceEnumerateProcesses"); err != nil {
		return 0, err
	}
	s := d.device(h, "")
	if s == nil {
		return 0, nil
	}
	var selected []any
	if opts != 0 {
		if o := d.get(opts, "options", "DeviceEnumerateProcesses"); o != nil {
			selected = o.selected
		}
	}
	var items []driver.Handle
	for _, p := range s.Processes {
		if len(selected) > 0 && !contains(selected, p.PID) {
			continue
		}
		items = append(items, d.newProcess(p))
	}
	return d.newList("process", items), nil
}

func contains(values []any, v any) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func (d *Driver) DeviceFindProcessByPID(h driver.Handle, pid uint, opts driver.Handle) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("DeviceFindProcessByPID"); err != nil {
		return 0, err
	}
	if s := d.device(h, ""); s != nil {
		for _, p := range s.Processes {
			if p.PID == pid {
				return d.newProcess(p), nil
			}
		}
	}
	return 0, nil
}

func (d *Driver) DeviceFindProcessByName(h driver.Handle, name string, opts driver.Handle) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("DeviceFindProcessByName"); err != nil {
		return 0, err
	}
	if s := d.device(h, ""); s != nil {
		for _, p := range s.Processes {
			if strings.EqualFold(p.Name, name) {
				return d.newProcess(p), nil
			}
		}
	}
	return 0, nil
}

func (d *Driver) DeviceEnableSpawnGating(h driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("DeviceEnableSpawnGating"); err != nil {
		return err
	}
	if o := d.get(h, "device", "DeviceEnableSpawnGating"); o != nil {
		o.gating = true
	}
	return nil
}

func (d *Driver) DeviceDisableSpawnGating(h driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("DeviceDisableSpawnGating"); err != nil {
		return err
	}
	if o := d.get(h, "device", "DeviceDisableSpawnGating"); o != nil {
		o.gating = false
	}
	return nil
}

func (d *Driver) DeviceEnumeratePendingSpawn(h driver.Handle) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("DeviceEnumeratePendingSpawn"); err != nil {
		return 0, err
	}
	s := d.device(h, "")
	if s == nil {
		return 0, nil
	}
	var items []driver.Handle
	for _, sp := range s.PendingSpawn {
		items = append(items, d.alloc(&object{
			kind:       "spawn",
			pid:        sp.PID,
			identifier: sp.Identifier,
			hasIdent:   sp.Identifier != "",
		}))
	}
	return d.newList("spawn", items), nil
}

func (d *Driver) DeviceEnumeratePendingChildren(h driver.Handle) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("DeviceEnumeratePendingChildren"); err != nil {
		return 0, err
	}
	s := d.device(h, "")
	if s == nil {
		return 0, nil
	}
	var items []driver.Handle
	for _, c := range s.PendingChildren {
		items = append(items, d.alloc(&object{
			kind:       "child",
			pid:        c.PID,
			ppid:       c.ParentPID,
			origin:     c.Origin,
			identifier: c.Identifier,
			hasIdent:   c.Identifier != "",
			path:       c.Path,
			hasPath:    c.Path != "",
			argv:       c.Argv,
			envp:       c.Envp,
		}))
	}
	return d.newList("child", items), nil
}

func (d *Driver) DeviceSpawn(h driver.Handle, program string, opts driver.Handle) (uint, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("DeviceSpawn"); err != nil {
		return 0, err
	}
	if d.get(h, "device", "DeviceSpawn") == nil {
		return 0, nil
	}
	rec := SpawnRecord{Program: program}
	if opts != 0 {
		if o := d.get(opts, "options", "DeviceSpawn"); o != nil {
			rec.Argv, _ = o.props["argv"].([]string)
			rec.Envp, _ = o.props["envp"].([]string)
			rec.Cwd, _ = o.props["cwd"].(string)
		}
	}
	d.nextPID++
	rec.PID = d.nextPID
	d.spawned = append(d.spawned, rec)
	return rec.PID, nil
}

func (d *Driver) DeviceInput(h driver.Handle, pid uint, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("DeviceInput"); err != nil {
		return err
	}
	d.get(h, "device", "DeviceInput")
	d.inputs[pid] = append(d.inputs[pid], data...)
	return nil
}

func (d *Driver) DeviceResume(h driver.Handle, pid uint) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("DeviceResume"); err != nil {
		return err
	}
	d.get(h, "device", "DeviceResume")
	d.resumed = append(d.resumed, pid)
	return nil
}

func (d *Driver) DeviceKill(h driver.Handle, pid uint) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("DeviceKill"); err != nil {
		return err
	}
	d.get(h, "device", "DeviceKill")
	d.killed = append(d.killed, pid)
	return nil
}

func (d *Driver) knownPID(s *DeviceSpec, pid uint) bool {
	for _, p := range s.Processes {
		if p.PID == pid {
			return true
		}
	}
	for _, r := range d.spawned {
		if r.PID == pid {
			return true
		}
	}
	return false
}

func (d *Driver) DeviceAttach(h driver.Handle, pid uint, opts driver.Handle) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("DeviceAttach"); err != nil {
		return 0, err
	}
	s := d.device(h, "")
	if s == nil {
		return 0, nil
	}
	if !d.knownPID(s, pid) {
		return 0, processNotFound(pid)
	}
	sess := &object{kind: "session", pid: pid}
	if opts != 0 {
		if o := d.get(opts, "options", "DeviceAttach"); o != nil {
			if v, ok := o.props["persist-timeout"].(int); ok {
				sess.persist = uint(v)
			}
		}
	}
	return d.alloc(sess), nil
}
