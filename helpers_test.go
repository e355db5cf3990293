package fridabind

import (
	"testing"
	"time"

	"github.com/dsjlzh/fridabind/driver"
	"github.com/dsjlzh/fridabind/internal/fakefrida"
)

// withFake registers a fresh fake driver for the duration of the test and
// fails the test if it saw an ownership violation.
func withFake(t *testing.T) *fakefrida.Driver {
	t.Helper()
	fake := fakefrida.New()
	prev := current.Load()
	Register(fake)

	deviceManagerMu.Lock()
	prevDM := deviceManager
	deviceManager = nil
	deviceManagerMu.Unlock()

	t.Cleanup(func() {
		deviceManagerMu.Lock()
		if deviceManager != nil {
			deviceManager.Close()
		}
		deviceManager = prevDM
		deviceManagerMu.Unlock()
		current.Store(prev)
		for _, v := range fake.Violations() {
			t.Errorf("ownership violation: %s", v)
		}
	})
	return fake
}

var testProcesses = []fakefrida.ProcessSpec{
	{PID: 100, Name: "foo", Parameters: map[string]any{"ppid": int64(1), "path": "/usr/bin/foo"}},
	{PID: 200, Name: "bar-foo-baz"},
	{PID: 300, Name: "qux"},
}

var testApplications = []fakefrida.ApplicationSpec{
	{Identifier: "com.example.mail", Name: "Mail", PID: 100},
	{Identifier: "com.example.notes", Name: "Notes"},
}

// localDevice registers the usual devices and returns the local one.
func localDevice(t *testing.T, fake *fakefrida.Driver) *Device {
	t.Helper()
	fake.AddDevice(fakefrida.DeviceSpec{
		ID:   "local",
		Name: "Local System",
		Type: driver.DeviceTypeLocal,
		Parameters: map[string]any{
			"platform": "linux",
			"arch":     "x86_64",
			"access":   "full",
			"os": map[string]any{
				"id":      "ubuntu",
				"name":    "Ubuntu",
				"version": "24.04",
			},
		},
		Processes:    testProcesses,
		Applications: testApplications,
		Frontmost:    "com.example.mail",
		PendingSpawn: []fakefrida.SpawnSpec{{PID: 501, Identifier: "com.example.mail"}, {PID: 502}},
		PendingChildren: []fakefrida.ChildSpec{{
			PID:       601,
			ParentPID: 100,
			Origin:    driver.ChildOriginExec,
			Path:      "/bin/sh",
			Argv:      []string{"sh", "-c", "true"},
			Envp:      []string{"HOME=/root"},
		}},
	})
	fake.AddDevice(fakefrida.DeviceSpec{ID: "usb-1", Name: "Pixel", Type: driver.DeviceTypeUSB})

	d, err := GetLocalDevice()
	if err != nil {
		t.Fatalf("GetLocalDevice: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func attach(t *testing.T, d *Device, pid uint) *Session {
	t.Helper()
	sess, err := d.Attach(pid, nil)
	if err != nil {
		t.Fatalf("Attach(%d): %v", pid, err)
	}
	t.Cleanup(func() { sess.Close() })
	return sess
}

func createScript(t *testing.T, sess *Session, name string) *Script {
	t.Helper()
	s, err := sess.CreateScriptNamed("send(1);", name)
	if err != nil {
		t.Fatalf("CreateScriptNamed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	var zero T
	return zero
}
