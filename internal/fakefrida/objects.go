package fakefrida

import (
	"github.com/dsjlzh/fridabind/driver"
)

/*********************************************
 * Processes, applications, spawns, children *
 *********************************************/

func (d *Driver) entry(h driver.Handle, kind, op string) *object {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enter(op)
	return d.get(h, kind, op)
}

func (d *Driver) ProcessListSize(l driver.Handle) int {
	return d.listSize(l, "process", "ProcessListSize")
}

func (d *Driver) ProcessListGet(l driver.Handle, i int) driver.Handle {
	return d.listGet(l, i, "process", "ProcessListGet")
}

func (d *Driver) ProcessPID(p driver.Handle) uint {
	if o := d.entry(p, "process", "ProcessPID"); o != nil {
		return o.pid
	}
	return 0
}

func (d *Driver) ProcessName(p driver.Handle) string {
	if o := d.entry(p, "process", "ProcessName"); o != nil {
		return o.name
	}
	return ""
}

func (d *Driver) ProcessParameters(p driver.Handle) map[string]any {
	if o := d.entry(p, "process", "ProcessParameters"); o != nil {
		return copyParams(o.params)
	}
	return nil
}

func (d *Driver) ApplicationListSize(l driver.Handle) int {
	return d.listSize(l, "application", "ApplicationListSize")
}

func (d *Driver) ApplicationListGet(l driver.Handle, i int) driver.Handle {
	return d.listGet(l, i, "application", "ApplicationListGet")
}

func (d *Driver) ApplicationIdentifier(a driver.Handle) string {
	if o := d.entry(a, "application", "ApplicationIdentifier"); o != nil {
		return o.identifier
	}
	return ""
}

func (d *Driver) ApplicationName(a driver.Handle) string {
	if o := d.entry(a, "application", "ApplicationName"); o != nil {
		return o.name
	}
	return ""
}

func (d *Driver) ApplicationPID(a driver.Handle) uint {
	if o := d.entry(a, "application", "ApplicationPID"); o != nil {
		return o.pid
	}
	return 0
}

func (d *Driver) ApplicationParameters(a driver.Handle) map[string]any {
	if o := d.entry(a, "application", "ApplicationParameters"); o != nil {
		return copyParams(o.params)
	}
	return nil
}

func (d *Driver) SpawnListSize(l driver.Handle) int {
	return d.listSize(l, "spawn", "SpawnListSize")
}

func (d *Driver) SpawnListGet(l driver.Handle, i int) driver.Handle {
	return d.listGet(l, i, "spawn", "SpawnListGet")
}

func (d *Driver) SpawnPID(s driver.Handle) uint {
	if o := d.entry(s, "spawn", "SpawnPID"); o != nil {
		return o.pid
	}
	return 0
}

func (d *Driver) SpawnIdentifier(s driver.Handle) (string, bool) {
	if o := d.entry(s, "spawn", "SpawnIdentifier"); o != nil {
		return o.identifier, o.hasIdent
	}
	return "", false
}

func (d *Driver) ChildListSize(l driver.Handle) int {
	return d.listSize(l, "child", "ChildListSize")
}

func (d *Driver) ChildListGet(l driver.Handle, i int) driver.Handle {
	return d.listGet(l, i, "child", "ChildListGet")
}

func (d *Driver) ChildPID(c driver.Handle) uint {
	if o := d.entry(c, "child", "ChildPID"); o != nil {
		return o.pid
	}
	return 0
}

func (d *Driver) ChildParentPID(c driver.Handle) uint {
	if o := d.entry(c, "child", "ChildParentPID"); o != nil {
		return o.ppid
	}
	return 0
}

func (d *Driver) ChildOrigin(c driver.Handle) driver.ChildOrigin {
	if o := d.entry(c, "child", "ChildOrigin"); o != nil {
		return o.origin
	}
	return 0
}

func (d *Driver) ChildIdentifier(c driver.Handle) (string, bool) {
	if o := d.entry(c, "child", "ChildIdentifier"); o != nil {
		return o.identifier, o.hasIdent
	}
	return "", false
}

func (d *Driver) ChildPath(c driver.Handle) (string, bool) {
	if o := d.entry(c, "child", "ChildPath"); o != nil {
		return o.path, o.hasPath
	}
	return "", false
}

func (d *Driver) ChildArgv(c driver.Handle) []string {
	if o := d.entry(c, "child", "ChildArgv"); o != nil {
		return append([]string(nil), o.argv...)
	}
	return nil
}

func (d *Driver) ChildEnvp(c driver.Handle) []string {
	if o := d.entry(c, "child", "ChildEnvp"); o != nil {
		return append([]string(nil), o.envp...)
	}
	return nil
}

/************
 * Sessions *
 ************/

func (d *Driver) SessionPID(s driver.Handle) uint {
	if o := d.entry(s, "session", "SessionPID"); o != nil {
		return o.pid
	}
	return 0
}

func (d *Driver) SessionPersistTimeout(s driver.Handle) uint {
	if o := d.entry(s, "session", "SessionPersistTimeout"); o != nil {
		return o.persist
	}
	return 0
}

func (d *Driver) SessionIsDetached(s driver.Handle) bool {
	if o := d.entry(s, "session", "SessionIsDetached"); o != nil {
		return o.detached
	}
	return true
}

func (d *Driver) SessionDetach(s driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("SessionDetach"); err != nil {
		return err
	}
	if o := d.get(s, "session", "SessionDetach"); o != nil {
		o.detached = true
	}
	return nil
}

func (d *Driver) SessionResume(s driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("SessionResume"); err != nil {
		return err
	}
	d.get(s, "session", "SessionResume")
	return nil
}

func (d *Driver) SessionEnableChildGating(s driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("SessionEnableChildGating"); err != nil {
		return err
	}
	if o := d.get(s, "session", "SessionEnableChildGating"); o != nil {
		o.gating = true
	}
	return nil
}

func (d *Driver) SessionDisableChildGating(s driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("SessionDisableChildGating"); err != nil {
		return err
	}
	if o := d.get(s, "session", "SessionDisableChildGating"); o != nil {
		o.gating = false
	}
	return nil
}

func (d *Driver) createScript(s, opts driver.Handle, op string) (driver.Handle, error) {
	if err := d.enter(op); err != nil {
		return 0, err
	}
	o := d.get(s, "session", op)
	if o == nil {
		return 0, nil
	}
	if o.detached {
		return 0, &driver.Error{Code: driver.ErrorInvalidOperation, Message: "Session is gone"}
	}
	script := &object{kind: "script"}
	if opts != 0 {
		if oo := d.get(opts, "options", op); oo != nil {
			script.name, _ = oo.props["name"].(string)
		}
	}
	return d.alloc(script), nil
}

func (d *Driver) SessionCreateScript(s driver.Handle, source string, opts driver.Handle) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.createScript(s, opts, "SessionCreateScript")
}

func (d *Driver) SessionCreateScriptFromBytes(s driver.Handle, bytes []byte, opts driver.Handle) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.createScript(s, opts, "SessionCreateScriptFromBytes")
}

// SessionCompileScript "compiles" to the source bytes.
func (d *Driver) SessionCompileScript(s driver.Handle, source string, opts driver.Handle) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("SessionCompileScript"); err != nil {
		return nil, err
	}
	d.get(s, "session", "SessionCompileScript")
	return []byte(source), nil
}

func (d *Driver) SessionConnectDetached(s driver.Handle, fn driver.DetachedFunc) driver.SignalID {
	return d.connect(s, "session", "SessionConnectDetached", fn)
}

/***********
 * Scripts *
 ***********/

func (d *Driver) ScriptIsDestroyed(s driver.Handle) bool {
	if o := d.entry(s, "script", "ScriptIsDestroyed"); o != nil {
		return o.destroyed
	}
	return true
}

func (d *Driver) ScriptLoad(s driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("ScriptLoad"); err != nil {
		return err
	}
	o := d.get(s, "script", "ScriptLoad")
	if o == nil {
		return nil
	}
	if o.destroyed {
		return &driver.Error{Code: driver.ErrorInvalidOperation, Message: "Script is destroyed"}
	}
	if o.loaded {
		return &driver.Error{Code: driver.ErrorInvalidOperation, Message: "Script is already loaded"}
	}
	o.loaded = true
	return nil
}

func (d *Driver) ScriptUnload(s driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("ScriptUnload"); err != nil {
		return err
	}
	o := d.get(s, "script", "ScriptUnload")
	if o == nil {
		return nil
	}
	if o.destroyed {
		return &driver.Error{Code: driver.ErrorInvalidOperation, Message: "Script is destroyed"}
	}
	o.loaded = false
	o.destroyed = true
	return nil
}

func (d *Driver) ScriptEternalize(s driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("ScriptEternalize"); err != nil {
		return err
	}
	if o := d.get(s, "script", "ScriptEternalize"); o != nil {
		o.eternal = true
	}
	return nil
}

func (d *Driver) ScriptPost(s driver.Handle, message string, data []byte) {
	d.mu.Lock()
	d.enter("ScriptPost")
	o := d.get(s, "script", "ScriptPost")
	if o != nil {
		var cp []byte
		if data != nil {
			cp = append([]byte{}, data...)
		}
		o.posts = append(o.posts, Post{Message: message, Data: cp})
	}
	hook := d.onPost
	d.mu.Unlock()
	if o != nil && hook != nil {
		hook(s, message, data)
	}
}

func (d *Driver) ScriptConnectMessage(s driver.Handle, fn driver.MessageFunc) driver.SignalID {
	return d.connect(s, "script", "ScriptConnectMessage", fn)
}

/***********
 * Options *
 ***********/

var properties = map[driver.OptionsKind]map[string]string{
	driver.ApplicationQueryOptions: {"scope": "int"},
	driver.FrontmostQueryOptions:   {"scope": "int"},
	driver.ProcessQueryOptions:     {"scope": "int"},
	driver.ProcessMatchOptions:     {"scope": "int", "timeout": "int"},
	driver.RemoteDeviceOptions:     {"origin": "string", "token": "string", "keepalive-interval": "int"},
	driver.SessionOptions:          {"realm": "int", "persist-timeout": "int", "emulated-agent-path": "string"},
	driver.SpawnOptions:            {"argv": "strv", "envp": "strv", "env": "strv", "cwd": "string", "stdio": "int"},
	driver.ScriptOptions:           {"name": "string", "runtime": "int"},
}

func (d *Driver) OptionsNew(kind driver.OptionsKind) driver.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.enter("OptionsNew") != nil {
		return 0
	}
	props := make(map[string]any)
	if kind == driver.ProcessMatchOptions {
		props["timeout"] = 0
	}
	return d.alloc(&object{kind: "options", optKind: kind, props: props})
}

// property checks that name exists on o with the given type. d.mu must be
// held.
func (d *Driver) property(h driver.Handle, name, typ, op string) (*object, error) {
	if err := d.enter(op); err != nil {
		return nil, err
	}
	o := d.get(h, "options", op)
	if o == nil {
		return nil, driver.ErrUnsupported
	}
	t, ok := properties[o.optKind][name]
	if !ok {
		return nil, driver.ErrUnsupported
	}
	if t != typ {
		return nil, &driver.Error{Code: driver.ErrorInvalidArgument, Message: "Property " + name + " is a " + t}
	}
	return o, nil
}

func (d *Driver) OptionsSetString(h driver.Handle, name, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	o, err := d.property(h, name, "string", "OptionsSetString")
	if err != nil {
		return err
	}
	o.props[name] = value
	return nil
}

func (d *Driver) OptionsString(h driver.Handle, name string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	o, err := d.property(h, name, "string", "OptionsString")
	if err != nil {
		return "", false, err
	}
	v, ok := o.props[name].(string)
	return v, ok, nil
}

func (d *Driver) OptionsSetInt(h driver.Handle, name string, value int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	o, err := d.property(h, name, "int", "OptionsSetInt")
	if err != nil {
		return err
	}
	o.props[name] = value
	return nil
}

func (d *Driver) OptionsInt(h driver.Handle, name string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	o, err := d.property(h, name, "int", "OptionsInt")
	if err != nil {
		return 0, err
	}
	v, _ := o.props[name].(int)
	return v, nil
}

func (d *Driver) OptionsSetStrings(h driver.Handle, name string, values []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	o, err := d.property(h, name, "strv", "OptionsSetStrings")
	if err != nil {
		return err
	}
	o.props[name] = append([]string(nil), values...)
	return nil
}

func (d *Driver) OptionsStrings(h driver.Handle, name string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	o, err := d.property(h, name, "strv", "OptionsStrings")
	if err != nil {
		return nil, err
	}
	v, _ := o.props[name].([]string)
	return append([]string(nil), v...), nil
}

func (d *Driver) OptionsSelectIdentifier(h driver.Handle, identifier string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("OptionsSelectIdentifier"); err != nil {
		return err
	}
	o := d.get(h, "options", "OptionsSelectIdentifier")
	if o == nil || o.optKind != driver.ApplicationQueryOptions {
		return driver.ErrUnsupported
	}
	o.selected = append(o.selected, identifier)
	return nil
}

func (d *Driver) OptionsSelectPID(h driver.Handle, pid uint) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("OptionsSelectPID"); err != nil {
		return err
	}
	o := d.get(h, "options", "OptionsSelectPID")
	if o == nil || o.optKind != driver.ProcessQueryOptions {
		return driver.ErrUnsupported
	}
	o.selected = append(o.selected, pid)
	return nil
}

/*****************
 * File monitors *
 *****************/

func (d *Driver) FileMonitorNew(path string) driver.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.enter("FileMonitorNew") != nil {
		return 0
	}
	return d.alloc(&object{kind: "file monitor", path: path})
}

func (d *Driver) FileMonitorEnable(m driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("FileMonitorEnable"); err != nil {
		return err
	}
	o := d.get(m, "file monitor", "FileMonitorEnable")
	if o != nil && o.enabled {
		return &driver.Error{Code: driver.ErrorInvalidOperation, Message: "Already enabled"}
	}
	if o != nil {
		o.enabled = true
	}
	return nil
}

func (d *Driver) FileMonitorDisable(m driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("FileMonitorDisable"); err != nil {
		return err
	}
	o := d.get(m, "file monitor", "FileMonitorDisable")
	if o != nil && !o.enabled {
		return &driver.Error{Code: driver.ErrorInvalidOperation, Message: "Already disabled"}
	}
	if o != nil {
		o.enabled = false
	}
	return nil
}

func (d *Driver) FileMonitorConnectChange(m driver.Handle, fn driver.FileChangedFunc) driver.SignalID {
	return d.connect(m, "file monitor", "FileMonitorConnectChange", fn)
}
