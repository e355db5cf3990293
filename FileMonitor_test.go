package fridabind

import (
	"errors"
	"testing"
)

func TestFileMonitor(t *testing.T) {
	fake := withFake(t)

	fm, err := NewFileMonitor("/tmp/watched")
	if err != nil {
		t.Fatalf("NewFileMonitor: %v", err)
	}
	defer fm.Close()
	if fm.Path() != "/tmp/watched" {
		t.Errorf("Path = %q", fm.Path())
	}

	ch := make(chan *FileChange, 4)
	if err := fm.OnChange(func(c *FileChange) { ch <- c }); err != nil {
		t.Fatalf("OnChange: %v", err)
	}
	if err := fm.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	err = fm.Enable()
	var fe *Error
	if !errors.As(err, &fe) || fe.Msg != "Already enabled" {
		t.Errorf("second Enable = %v", err)
	}

	fake.EmitFileChange(fm.obj.ptr, "/tmp/watched/a", "", FileCreated)
	fake.EmitFileChange(fm.obj.ptr, "/tmp/watched/a", "/tmp/watched/b", FileRenamed)
	c := receive(t, ch)
	if c.Path != "/tmp/watched/a" || c.Event != FileCreated || c.Event.String() != "created" {
		t.Errorf("first change = %+v", c)
	}
	c = receive(t, ch)
	if c.OtherPath != "/tmp/watched/b" || c.Event != FileRenamed {
		t.Errorf("second change = %+v", c)
	}

	if err := fm.Disable(); err != nil {
		t.Errorf("Disable: %v", err)
	}
	fm.Close()
	if err := fm.Enable(); !errors.Is(err, ErrReleased) {
		t.Errorf("Enable after Close = %v, want ErrReleased", err)
	}
	if got := fake.Calls("Disconnect"); got != 1 {
		t.Errorf("disconnected %d handlers, want 1", got)
	}
}
