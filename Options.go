package fridabind

import (
	"fmt"
	"runtime"

	"golang.org/x/xerrors"

	"github.com/dsjlzh/fridabind/driver"
)

type Scope int

const (
	ScopeMinimal Scope = iota
	ScopeMetadata
	ScopeFull
)

func (s Scope) String() string {
	switch s {
	case ScopeMinimal:
		return "minimal"
	case ScopeMetadata:
		return "metadata"
	case ScopeFull:
		return "full"
	}
	return fmt.Sprintf("Scope(%d)", int(s))
}

type Realm int

const (
	RealmNative Realm = iota
	RealmEmulated
)

type Stdio int

const (
	StdioInherit Stdio = iota
	StdioPipe
)

type ScriptRuntime int

const (
	ScriptRuntimeDefault ScriptRuntime = iota
	ScriptRuntimeQJS
	ScriptRuntimeV8
)

// options is the common part of the configuration bags. Every property is
// addressed by its native name; a name the linked frida-core does not know
// yields ErrUnsupported.
type options struct {
	obj *object
}

func newOptions(kind driver.OptionsKind, label string) (options, error) {
	l, err := initLibrary()
	if err != nil {
		return options{}, err
	}
	h := l.drv.OptionsNew(kind)
	if h == 0 {
		l.deinit()
		return options{}, NewErrorAndLog(label+": new failed", ErrorUnknown)
	}
	obj := adopt(l.drv, h, label)
	obj.onRelease(l.deinit)
	return options{obj: obj}, nil
}

func (o *options) Close() error {
	o.obj.release()
	return nil
}

// Set assigns a property. value may be a string, an integer type, a Scope,
// Realm, Stdio, ScriptRuntime or a []string.
func (o *options) Set(name string, value interface{}) error {
	return o.obj.use(func(drv driver.Driver, h driver.Handle) error {
		switch v := value.(type) {
		case string:
			return NewErrorFromGError(drv.OptionsSetString(h, name, v))
		case []string:
			return NewErrorFromGError(drv.OptionsSetStrings(h, name, v))
		case int:
			return NewErrorFromGError(drv.OptionsSetInt(h, name, v))
		case uint:
			return NewErrorFromGError(drv.OptionsSetInt(h, name, int(v)))
		case int32:
			return NewErrorFromGError(drv.OptionsSetInt(h, name, int(v)))
		case uint32:
			return NewErrorFromGError(drv.OptionsSetInt(h, name, int(v)))
		case int64:
			return NewErrorFromGError(drv.OptionsSetInt(h, name, int(v)))
		case Scope:
			return NewErrorFromGError(drv.OptionsSetInt(h, name, int(v)))
		case Realm:
			return NewErrorFromGError(drv.OptionsSetInt(h, name, int(v)))
		case Stdio:
			return NewErrorFromGError(drv.OptionsSetInt(h, name, int(v)))
		case ScriptRuntime:
			return NewErrorFromGError(drv.OptionsSetInt(h, name, int(v)))
		}
		return xerrors.Errorf("option %s: unsupported value type %T", name, value)
	})
}

// GetString returns "" for a null property.
func (o *options) GetString(name string) (value string, err error) {
	err = o.obj.use(func(drv driver.Driver, h driver.Handle) error {
		value, _, err = drv.OptionsString(h, name)
		return NewErrorFromGError(err)
	})
	return
}

func (o *options) GetInt(name string) (value int, err error) {
	err = o.obj.use(func(drv driver.Driver, h driver.Handle) error {
		value, err = drv.OptionsInt(h, name)
		return NewErrorFromGError(err)
	})
	return
}

func (o *options) GetStrings(name string) (values []string, err error) {
	err = o.obj.use(func(drv driver.Driver, h driver.Handle) error {
		values, err = drv.OptionsStrings(h, name)
		return NewErrorFromGError(err)
	})
	return
}

func (o *options) scope() (Scope, error) {
	v, err := o.GetInt("scope")
	return Scope(v), err
}

/*****************
 * Query options *
 *****************/

type ApplicationQueryOptions struct {
	options
}

func NewApplicationQueryOptions() (*ApplicationQueryOptions, error) {
	base, err := newOptions(driver.ApplicationQueryOptions, "application query options")
	if err != nil {
		return nil, err
	}
	o := &ApplicationQueryOptions{base}
	runtime.SetFinalizer(o, (*ApplicationQueryOptions).Close)
	return o, nil
}

func (o *ApplicationQueryOptions) object() *object {
	if o == nil {
		return nil
	}
	return o.obj
}

func (o *ApplicationQueryOptions) SetScope(s Scope) error {
	return o.Set("scope", s)
}

func (o *ApplicationQueryOptions) Scope() (Scope, error) {
	return o.scope()
}

// SelectIdentifier restricts the query to the given applications. It may be
// called several times.
func (o *ApplicationQueryOptions) SelectIdentifier(identifier string) error {
	return o.obj.use(func(drv driver.Driver, h driver.Handle) error {
		return NewErrorFromGError(drv.OptionsSelectIdentifier(h, identifier))
	})
}

type FrontmostQueryOptions struct {
	options
}

func NewFrontmostQueryOptions() (*FrontmostQueryOptions, error) {
	base, err := newOptions(driver.FrontmostQueryOptions, "frontmost query options")
	if err != nil {
		return nil, err
	}
	o := &FrontmostQueryOptions{base}
	runtime.SetFinalizer(o, (*FrontmostQueryOptions).Close)
	return o, nil
}

func (o *FrontmostQueryOptions) object() *object {
	if o == nil {
		return nil
	}
	return o.obj
}

func (o *FrontmostQueryOptions) SetScope(s Scope) error {
	return o.Set("scope", s)
}

func (o *FrontmostQueryOptions) Scope() (Scope, error) {
	return o.scope()
}

type ProcessQueryOptions struct {
	options
}

func NewProcessQueryOptions() (*ProcessQueryOptions, error) {
	base, err := newOptions(driver.ProcessQueryOptions, "process query options")
	if err != nil {
		return nil, err
	}
	o := &ProcessQueryOptions{base}
	runtime.SetFinalizer(o, (*ProcessQueryOptions).Close)
	return o, nil
}

func (o *ProcessQueryOptions) object() *object {
	if o == nil {
		return nil
	}
	return o.obj
}

func (o *ProcessQueryOptions) SetScope(s Scope) error {
	return o.Set("scope", s)
}

func (o *ProcessQueryOptions) Scope() (Scope, error) {
	return o.scope()
}

// SelectPID restricts the query to the given processes. It may be called
// several times.
func (o *ProcessQueryOptions) SelectPID(pid uint) error {
	return o.obj.use(func(drv driver.Driver, h driver.Handle) error {
		return NewErrorFromGError(drv.OptionsSelectPID(h, pid))
	})
}

type ProcessMatchOptions struct {
	options
}

func NewProcessMatchOptions() (*ProcessMatchOptions, error) {
	base, err := newOptions(driver.ProcessMatchOptions, "process match options")
	if err != nil {
		return nil, err
	}
	o := &ProcessMatchOptions{base}
	runtime.SetFinalizer(o, (*ProcessMatchOptions).Close)
	return o, nil
}

func (o *ProcessMatchOptions) object() *object {
	if o == nil {
		return nil
	}
	return o.obj
}

// SetTimeout sets how many milliseconds to wait for the process to appear.
func (o *ProcessMatchOptions) SetTimeout(ms int) error {
	return o.Set("timeout", ms)
}

func (o *ProcessMatchOptions) Timeout() (int, error) {
	return o.GetInt("timeout")
}

func (o *ProcessMatchOptions) SetScope(s Scope) error {
	return o.Set("scope", s)
}

func (o *ProcessMatchOptions) Scope() (Scope, error) {
	return o.scope()
}

/******************
 * Remote devices *
 ******************/

type RemoteDeviceOptions struct {
	options
}

func NewRemoteDeviceOptions() (*RemoteDeviceOptions, error) {
	base, err := newOptions(driver.RemoteDeviceOptions, "remote device options")
	if err != nil {
		return nil, err
	}
	o := &RemoteDeviceOptions{base}
	runtime.SetFinalizer(o, (*RemoteDeviceOptions).Close)
	return o, nil
}

func (o *RemoteDeviceOptions) object() *object {
	if o == nil {
		return nil
	}
	return o.obj
}

func (o *RemoteDeviceOptions) SetOrigin(origin string) error {
	return o.Set("origin", origin)
}

func (o *RemoteDeviceOptions) Origin() (string, error) {
	return o.GetString("origin")
}

func (o *RemoteDeviceOptions) SetToken(token string) error {
	return o.Set("token", token)
}

func (o *RemoteDeviceOptions) Token() (string, error) {
	return o.GetString("token")
}

// SetKeepaliveInterval sets the interval in seconds; -1 picks the transport
// default and 0 disables keepalives.
func (o *RemoteDeviceOptions) SetKeepaliveInterval(seconds int) error {
	return o.Set("keepalive-interval", seconds)
}

func (o *RemoteDeviceOptions) KeepaliveInterval() (int, error) {
	return o.GetInt("keepalive-interval")
}

/************
 * Sessions *
 ************/

type SessionOptions struct {
	options
}

func NewSessionOptions() (*SessionOptions, error) {
	base, err := newOptions(driver.SessionOptions, "session options")
	if err != nil {
		return nil, err
	}
	o := &SessionOptions{base}
	runtime.SetFinalizer(o, (*SessionOptions).Close)
	return o, nil
}

func (o *SessionOptions) object() *object {
	if o == nil {
		return nil
	}
	return o.obj
}

func (o *SessionOptions) SetRealm(r Realm) error {
	return o.Set("realm", r)
}

func (o *SessionOptions) Realm() (Realm, error) {
	v, err := o.GetInt("realm")
	return Realm(v), err
}

// SetPersistTimeout sets how many seconds the session survives a lost
// connection.
func (o *SessionOptions) SetPersistTimeout(seconds uint) error {
	return o.Set("persist-timeout", seconds)
}

func (o *SessionOptions) PersistTimeout() (uint, error) {
	v, err := o.GetInt("persist-timeout")
	return uint(v), err
}

func (o *SessionOptions) SetEmulatedAgentPath(path string) error {
	return o.Set("emulated-agent-path", path)
}

func (o *SessionOptions) EmulatedAgentPath() (string, error) {
	return o.GetString("emulated-agent-path")
}

/**********
 * Spawns *
 **********/

type SpawnOptions struct {
	options
}

func NewSpawnOptions() (*SpawnOptions, error) {
	base, err := newOptions(driver.SpawnOptions, "spawn options")
	if err != nil {
		return nil, err
	}
	o := &SpawnOptions{base}
	runtime.SetFinalizer(o, (*SpawnOptions).Close)
	return o, nil
}

func (o *SpawnOptions) object() *object {
	if o == nil {
		return nil
	}
	return o.obj
}

// SetArgv sets the full argument vector, argv[0] included.
func (o *SpawnOptions) SetArgv(argv []string) error {
	return o.Set("argv", argv)
}

func (o *SpawnOptions) Argv() ([]string, error) {
	return o.GetStrings("argv")
}

// SetEnvp replaces the environment ("KEY=value" entries).
func (o *SpawnOptions) SetEnvp(envp []string) error {
	return o.Set("envp", envp)
}

func (o *SpawnOptions) Envp() ([]string, error) {
	return o.GetStrings("envp")
}

// SetEnv adds entries to the inherited environment.
func (o *SpawnOptions) SetEnv(env []string) error {
	return o.Set("env", env)
}

func (o *SpawnOptions) Env() ([]string, error) {
	return o.GetStrings("env")
}

func (o *SpawnOptions) SetCwd(cwd string) error {
	return o.Set("cwd", cwd)
}

func (o *SpawnOptions) Cwd() (string, error) {
	return o.GetString("cwd")
}

func (o *SpawnOptions) SetStdio(s Stdio) error {
	return o.Set("stdio", s)
}

func (o *SpawnOptions) Stdio() (Stdio, error) {
	v, err := o.GetInt("stdio")
	return Stdio(v), err
}

/***********
 * Scripts *
 ***********/

type ScriptOptions struct {
	options
}

func NewScriptOptions() (*ScriptOptions, error) {
	base, err := newOptions(driver.ScriptOptions, "script options")
	if err != nil {
		return nil, err
	}
	o := &ScriptOptions{base}
	runtime.SetFinalizer(o, (*ScriptOptions).Close)
	return o, nil
}

func (o *ScriptOptions) object() *object {
	if o == nil {
		return nil
	}
	return o.obj
}

func (o *ScriptOptions) scriptName() string {
	if o == nil {
		return ""
	}
	name, _ := o.Name()
	return name
}

func (o *ScriptOptions) SetName(name string) error {
	return o.Set("name", name)
}

func (o *ScriptOptions) Name() (string, error) {
	return o.GetString("name")
}

func (o *ScriptOptions) SetRuntime(r ScriptRuntime) error {
	return o.Set("runtime", r)
}

func (o *ScriptOptions) Runtime() (ScriptRuntime, error) {
	v, err := o.GetInt("runtime")
	return ScriptRuntime(v), err
}
