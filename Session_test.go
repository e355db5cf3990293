package fridabind

import (
	"errors"
	"testing"

	"github.com/dsjlzh/fridabind/driver"
)

func TestSessionCloseDetaches(t *testing.T) {
	fake := withFake(t)
	d := localDevice(t, fake)

	sess, err := d.Attach(100, nil)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if sess.IsDetached() {
		t.Error("new session is detached")
	}
	sess.Close()
	sess.Close()
	if got := fake.Calls("SessionDetach"); got != 1 {
		t.Errorf("detach ran %d times, want 1", got)
	}
	if !sess.IsDetached() {
		t.Error("closed session is not detached")
	}
	if got := fake.Live("session"); len(got) != 0 {
		t.Errorf("sessions still alive: %v", got)
	}
}

func TestSessionCloseAfterDetach(t *testing.T) {
	fake := withFake(t)
	d := localDevice(t, fake)

	sess, err := d.Attach(100, nil)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := sess.Detach(); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	sess.Close()
	if got := fake.Calls("SessionDetach"); got != 1 {
		t.Errorf("detach ran %d times, want 1", got)
	}
}

func TestSessionCloseAfterRemoteDetach(t *testing.T) {
	fake := withFake(t)
	d := localDevice(t, fake)

	sess, err := d.Attach(100, nil)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	fake.EmitDetached(sess.obj.ptr, driver.DetachReasonProcessTerminated, nil)
	sess.Close()
	if got := fake.Calls("SessionDetach"); got != 0 {
		t.Errorf("detach ran %d times, want 0", got)
	}
}

func TestSessionDetachFailureSwallowedOnClose(t *testing.T) {
	fake := withFake(t)
	d := localDevice(t, fake)

	sess, err := d.Attach(100, nil)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	fake.Fail("SessionDetach", &driver.Error{Code: driver.ErrorTransport, Message: "Connection closed"})
	if err := sess.Close(); err != nil {
		t.Errorf("Close = %v, want nil", err)
	}
	if got := fake.Live("session"); len(got) != 0 {
		t.Errorf("sessions still alive: %v", got)
	}
}

func TestSessionOnDetached(t *testing.T) {
	fake := withFake(t)
	d := localDevice(t, fake)
	sess := attach(t, d, 100)

	type detached struct {
		reason DetachReason
		crash  *Crash
	}
	ch := make(chan detached, 1)
	if err := sess.OnDetached(func(reason DetachReason, crash *Crash) {
		ch <- detached{reason, crash}
	}); err != nil {
		t.Fatalf("OnDetached: %v", err)
	}
	fake.EmitDetached(sess.obj.ptr, driver.DetachReasonProcessTerminated, &driver.Crash{
		PID:         100,
		ProcessName: "foo",
		Summary:     "SIGSEGV",
	})

	got := receive(t, ch)
	if got.reason != DetachReasonProcessTerminated || got.reason.String() != "process terminated" {
		t.Errorf("reason = %v", got.reason)
	}
	if got.crash == nil || got.crash.Pid != 100 || got.crash.Summary != "SIGSEGV" {
		t.Errorf("crash = %+v", got.crash)
	}
}

func TestSessionHandlerReplaced(t *testing.T) {
	fake := withFake(t)
	d := localDevice(t, fake)
	sess := attach(t, d, 100)

	first := make(chan DetachReason, 1)
	second := make(chan DetachReason, 1)
	sess.OnDetached(func(r DetachReason, _ *Crash) { first <- r })
	sess.OnDetached(func(r DetachReason, _ *Crash) { second <- r })
	if got := fake.Signals(sess.obj.ptr); got != 1 {
		t.Errorf("%d signal handlers connected, want 1", got)
	}

	fake.EmitDetached(sess.obj.ptr, driver.DetachReasonApplicationRequested, nil)
	if got := receive(t, second); got != DetachReasonApplicationRequested {
		t.Errorf("reason = %v", got)
	}
	select {
	case <-first:
		t.Error("replaced handler was called")
	default:
	}
}

func TestSessionOperations(t *testing.T) {
	fake := withFake(t)
	d := localDevice(t, fake)

	opts, err := NewSessionOptions()
	if err != nil {
		t.Fatalf("NewSessionOptions: %v", err)
	}
	defer opts.Close()
	if err := opts.SetPersistTimeout(30); err != nil {
		t.Fatalf("SetPersistTimeout: %v", err)
	}
	if err := opts.SetRealm(RealmEmulated); err != nil {
		t.Fatalf("SetRealm: %v", err)
	}

	sess, err := d.Attach(100, opts)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	defer sess.Close()
	if got := sess.PersistTimeout(); got != 30 {
		t.Errorf("PersistTimeout = %d, want 30", got)
	}
	for name, op := range map[string]func() error{
		"Resume":             sess.Resume,
		"EnableChildGating":  sess.EnableChildGating,
		"DisableChildGating": sess.DisableChildGating,
	} {
		if err := op(); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}

	code, err := sess.CompileScript("send(1);", nil)
	if err != nil || string(code) != "send(1);" {
		t.Fatalf("CompileScript = %q, %v", code, err)
	}
	s, err := sess.CreateScriptFromBytes(code, nil)
	if err != nil {
		t.Fatalf("CreateScriptFromBytes: %v", err)
	}
	s.Close()

	sess.Detach()
	if _, err := sess.CreateScript("send(1);", nil); err == nil || err.Error() != "Session is gone" {
		t.Errorf("CreateScript on detached session = %v", err)
	}
	sess.Close()
	if err := sess.Resume(); !errors.Is(err, ErrReleased) {
		t.Errorf("Resume after Close = %v, want ErrReleased", err)
	}
}
