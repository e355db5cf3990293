/*Package fakefrida : an in-memory driver.Driver for tests.

Objects are reference counted like their native counterparts. Misuse (a call
on a freed handle, an unref past zero) is recorded and reported by
Violations instead of crashing.
*/
package fakefrida

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dsjlzh/fridabind/driver"
)

type ProcessSpec struct {
	PID        uint
	Name       string
	Parameters map[string]any
}

type ApplicationSpec struct {
	Identifier string
	Name       string
	PID        uint
	Parameters map[string]any
}

type SpawnSpec struct {
	PID        uint
	Identifier string
}

type ChildSpec struct {
	PID        uint
	ParentPID  uint
	Origin     driver.ChildOrigin
	Identifier string
	Path       string
	Argv       []string
	Envp       []string
}

type DeviceSpec struct {
	ID           string
	Name         string
	Type         driver.DeviceType
	Lost         bool
	Parameters   map[string]any
	Processes    []ProcessSpec
	Applications []ApplicationSpec
	// Frontmost is the identifier of the frontmost application, if any.
	Frontmost       string
	PendingSpawn    []SpawnSpec
	PendingChildren []ChildSpec
}

// Post is one message a script received.
type Post struct {
	Message string
	Data    []byte
}

// SpawnRecord describes a Spawn call.
type SpawnRecord struct {
	PID     uint
	Program string
	Argv    []string
	Envp    []string
	Cwd     string
}

type object struct {
	kind string
	refs int

	items []driver.Handle
	dev   *DeviceSpec

	pid, ppid  uint
	name       string
	identifier string
	path       string
	hasIdent   bool
	hasPath    bool
	origin     driver.ChildOrigin
	argv, envp []string
	params     map[string]any
	persist    uint
	detached   bool
	destroyed  bool
	loaded     bool
	eternal    bool
	posts      []Post
	optKind    driver.OptionsKind
	props      map[string]any
	selected   []any
	enabled    bool
	gating     bool
	signals    map[driver.SignalID]any
}

// Driver implements driver.Driver in memory.
type Driver struct {
	mu      sync.Mutex
	next    driver.Handle
	nextSig driver.SignalID
	nextPID uint
	objects map[driver.Handle]*object
	freed   map[driver.Handle]string

	devices  []driver.Handle
	calls    map[string]int
	failures map[string]error
	spawned  []SpawnRecord
	resumed  []uint
	killed   []uint
	inputs   map[uint][]byte
	violates []string

	onPost func(script driver.Handle, message string, data []byte)

	Major, Minor, Micro, Nano uint
}

var _ driver.Driver = (*Driver)(nil)

func New() *Driver {
	return &Driver{
		next:     0x1000,
		nextPID:  4000,
		objects:  make(map[driver.Handle]*object),
		freed:    make(map[driver.Handle]string),
		calls:    make(map[string]int),
		failures: make(map[string]error),
		inputs:   make(map[uint][]byte),
		Major:    16,
		Minor:    1,
		Micro:    4,
	}
}

/***********
 * Control *
 ***********/

// AddDevice registers a device. The driver keeps one reference to it.
func (d *Driver) AddDevice(spec DeviceSpec) driver.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := spec
	h := d.alloc(&object{kind: "device", dev: &s})
	d.devices = append(d.devices, h)
	return h
}

// Fail makes every later call of op return err. A nil err clears it.
func (d *Driver) Fail(op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.failures, op)
		return
	}
	d.failures[op] = err
}

// Calls returns how many times op was called.
func (d *Driver) Calls(op string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[op]
}

// Refs returns the reference count of h, 0 once freed.
func (d *Driver) Refs(h driver.Handle) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if o, ok := d.objects[h]; ok {
		return o.refs
	}
	return 0
}

// Live returns the handles of live objects of kind, "" for all kinds.
func (d *Driver) Live(kind string) []driver.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	var hs []driver.Handle
	for h, o := range d.objects {
		if kind == "" || o.kind == kind {
			hs = append(hs, h)
		}
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
	return hs
}

// Violations lists the ownership errors observed so far.
func (d *Driver) Violations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.violates...)
}

// OnPost installs a hook run synchronously for every ScriptPost.
func (d *Driver) OnPost(fn func(script driver.Handle, message string, data []byte)) {
	d.mu.Lock()
	d.onPost = fn
	d.mu.Unlock()
}

func (d *Driver) Posts(script driver.Handle) []Post {
	d.mu.Lock()
	defer d.mu.Unlock()
	if o, ok := d.objects[script]; ok {
		return append([]Post(nil), o.posts...)
	}
	return nil
}

func (d *Driver) Spawned() []SpawnRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]SpawnRecord(nil), d.spawned...)
}

func (d *Driver) Resumed() []uint {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]uint(nil), d.resumed...)
}

func (d *Driver) Killed() []uint {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]uint(nil), d.killed...)
}

func (d *Driver) Input(pid uint) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inputs[pid]
}

// Loaded reports whether the script is loaded.
func (d *Driver) Loaded(script driver.Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	o, ok := d.objects[script]
	return ok && o.loaded
}

// ScriptName returns the name the script was created with.
func (d *Driver) ScriptName(script driver.Handle) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if o, ok := d.objects[script]; ok {
		return o.name
	}
	return ""
}

// Property returns an options property as set.
func (d *Driver) Property(opts driver.Handle, name string) any {
	d.mu.Lock()
	defer d.mu.Unlock()
	if o, ok := d.objects[opts]; ok {
		return o.props[name]
	}
	return nil
}

// Signals returns the number of handlers connected to h.
func (d *Driver) Signals(h driver.Handle) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if o, ok := d.objects[h]; ok {
		return len(o.signals)
	}
	return 0
}

// EmitMessage raises the "message" signal of a script on the calling
// goroutine.
func (d *Driver) EmitMessage(script driver.Handle, message string, data []byte) {
	for _, fn := range d.handlers(script) {
		if f, ok := fn.(driver.MessageFunc); ok {
			f(message, data)
		}
	}
}

// EmitDetached marks the session detached and raises its "detached" signal.
func (d *Driver) EmitDetached(session driver.Handle, reason driver.DetachReason, crash *driver.Crash) {
	d.mu.Lock()
	if o, ok := d.objects[session]; ok {
		o.detached = true
	}
	d.mu.Unlock()
	for _, fn := range d.handlers(session) {
		if f, ok := fn.(driver.DetachedFunc); ok {
			f(reason, crash)
		}
	}
}

func (d *Driver) EmitFileChange(monitor driver.Handle, path, otherPath string, event driver.FileMonitorEvent) {
	for _, fn := range d.handlers(monitor) {
		if f, ok := fn.(driver.FileChangedFunc); ok {
			f(path, otherPath, event)
		}
	}
}

func (d *Driver) handlers(h driver.Handle) []any {
	d.mu.Lock()
	defer d.mu.Unlock()
	o, ok := d.objects[h]
	if !ok {
		return nil
	}
	ids := make([]driver.SignalID, 0, len(o.signals))
	for id := range o.signals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]any, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, o.signals[id])
	}
	return fns
}

/************
 * Internal *
 ************/

func (d *Driver) alloc(o *object) driver.Handle {
	d.next += 0x10
	o.refs = 1
	d.objects[d.next] = o
	return d.next
}

func (d *Driver) violation(format string, args ...interface{}) {
	d.violates = append(d.violates, fmt.Sprintf(format, args...))
}

// enter counts op and returns the injected failure, if any. d.mu must be
// held.
func (d *Driver) enter(op string) error {
	d.calls[op]++
	return d.failures[op]
}

// get returns the live object h, recording a violation when h is freed or
// of another kind.
func (d *Driver) get(h driver.Handle, kind, op string) *object {
	o, ok := d.objects[h]
	if !ok {
		if k, wasFreed := d.freed[h]; wasFreed {
			d.violation("%s: use of freed %s %#x", op, k, uintptr(h))
		} else {
			d.violation("%s: unknown handle %#x", op, uintptr(h))
		}
		return nil
	}
	if kind != "" && o.kind != kind && !strings.HasSuffix(o.kind, kind) {
		d.violation("%s: handle %#x is a %s, want %s", op, uintptr(h), o.kind, kind)
		return nil
	}
	return o
}

func (d *Driver) unref(h driver.Handle) {
	o, ok := d.objects[h]
	if !ok {
		d.violation("Unref: freed or unknown handle %#x", uintptr(h))
		return
	}
	o.refs--
	if o.refs > 0 {
		return
	}
	delete(d.objects, h)
	d.freed[h] = o.kind
	for _, item := range o.items {
		d.unref(item)
	}
}

func (d *Driver) newList(kind string, items []driver.Handle) driver.Handle {
	return d.alloc(&object{kind: kind + " list", items: items})
}

func (d *Driver) listSize(l driver.Handle, kind, op string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enter(op)
	o := d.get(l, kind+" list", op)
	if o == nil {
		return 0
	}
	return len(o.items)
}

func (d *Driver) listGet(l driver.Handle, i int, kind, op string) driver.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enter(op)
	o := d.get(l, kind+" list", op)
	if o == nil || i < 0 || i >= len(o.items) {
		return 0
	}
	return o.items[i]
}

func copyParams(p map[string]any) map[string]any {
	if p == nil {
		return map[string]any{}
	}
	c := make(map[string]any, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

func processNotFound(pid uint) error {
	return &driver.Error{
		Code:    driver.ErrorProcessNotFound,
		Message: fmt.Sprintf("Unable to find process with pid %d", pid),
	}
}
