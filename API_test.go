package fridabind

import (
	"errors"
	"sync"
	"testing"
)

func TestInitRunsNativeInitOnce(t *testing.T) {
	fake := withFake(t)

	const n = 5
	for i := 0; i < n; i++ {
		if err := Init(); err != nil {
			t.Fatalf("Init: %v", err)
		}
	}
	for i := 0; i < n; i++ {
		Deinit()
	}
	if got := fake.Calls("Init"); got != 1 {
		t.Errorf("native init ran %d times, want 1", got)
	}
	if got := fake.Calls("Deinit"); got != 0 {
		t.Errorf("native deinit ran %d times, want 0", got)
	}

	// extra Deinit calls never go below zero
	Deinit()
	Deinit()
	l, _ := lib()
	if got := l.refs.Load(); got != 0 {
		t.Errorf("refs = %d, want 0", got)
	}
	if err := Init(); err != nil {
		t.Fatalf("Init after Deinit: %v", err)
	}
	if got := l.refs.Load(); got != 1 {
		t.Errorf("refs = %d, want 1", got)
	}
	Deinit()
}

func TestInitConcurrent(t *testing.T) {
	fake := withFake(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := Init(); err != nil {
				t.Errorf("Init: %v", err)
			}
		}()
	}
	wg.Wait()

	l, _ := lib()
	if got := l.refs.Load(); got != 50 {
		t.Errorf("refs = %d, want 50", got)
	}
	if got := fake.Calls("Init"); got != 1 {
		t.Errorf("native init ran %d times, want 1", got)
	}
	for i := 0; i < 50; i++ {
		Deinit()
	}
}

func TestShutdown(t *testing.T) {
	fake := withFake(t)

	if err := Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	Deinit()
	Shutdown()
	Shutdown()
	if got := fake.Calls("Deinit"); got != 1 {
		t.Errorf("native deinit ran %d times, want 1", got)
	}
	if err := Init(); !errors.Is(err, ErrShutdown) {
		t.Errorf("Init after Shutdown = %v, want ErrShutdown", err)
	}
	if _, err := NewDeviceManager(); !errors.Is(err, ErrShutdown) {
		t.Errorf("NewDeviceManager after Shutdown = %v, want ErrShutdown", err)
	}
}

func TestShutdownWithoutInit(t *testing.T) {
	fake := withFake(t)

	Shutdown()
	if got := fake.Calls("Deinit"); got != 0 {
		t.Errorf("native deinit ran %d times, want 0", got)
	}
}

func TestShutdownBeforeFirstInit(t *testing.T) {
	fake := withFake(t)

	Shutdown()
	if err := Init(); !errors.Is(err, ErrShutdown) {
		t.Errorf("Init after Shutdown = %v, want ErrShutdown", err)
	}
	if got := fake.Calls("Init"); got != 0 {
		t.Errorf("native init ran %d times after Shutdown", got)
	}
}

func TestInitRacingShutdown(t *testing.T) {
	for i := 0; i < 100; i++ {
		fake := withFake(t)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := Init(); err == nil {
				Deinit()
			} else if !errors.Is(err, ErrShutdown) {
				t.Errorf("Init = %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			Shutdown()
		}()
		wg.Wait()

		// Every native init is matched by the shutdown's deinit.
		if in, de := fake.Calls("Init"), fake.Calls("Deinit"); in != de {
			t.Fatalf("round %d: native init ran %d times, deinit %d", i, in, de)
		}
	}
}

func TestNoDriver(t *testing.T) {
	prev := current.Swap(nil)
	t.Cleanup(func() { current.Store(prev) })

	if err := Init(); !errors.Is(err, ErrNoDriver) {
		t.Errorf("Init = %v, want ErrNoDriver", err)
	}
	if _, err := VersionString(); !errors.Is(err, ErrNoDriver) {
		t.Errorf("VersionString = %v, want ErrNoDriver", err)
	}
	Deinit()
	Shutdown()
}

func TestVersion(t *testing.T) {
	fake := withFake(t)
	fake.Major, fake.Minor, fake.Micro, fake.Nano = 16, 2, 1, 0

	major, minor, micro, _, err := Version()
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if major != 16 || minor != 2 || micro != 1 {
		t.Errorf("Version = %d.%d.%d, want 16.2.1", major, minor, micro)
	}
	s, err := VersionString()
	if err != nil || s != "16.2.1" {
		t.Errorf("VersionString = %q, %v", s, err)
	}
}

func TestDeviceManagerBalancesInit(t *testing.T) {
	fake := withFake(t)

	dm, err := NewDeviceManager()
	if err != nil {
		t.Fatalf("NewDeviceManager: %v", err)
	}
	l, _ := lib()
	if got := l.refs.Load(); got != 1 {
		t.Errorf("refs with manager = %d, want 1", got)
	}
	dm.Close()
	dm.Close()
	if got := l.refs.Load(); got != 0 {
		t.Errorf("refs after Close = %d, want 0", got)
	}
	if got := fake.Calls("DeviceManagerClose"); got != 1 {
		t.Errorf("close_sync ran %d times, want 1", got)
	}
	if got := len(fake.Live("device manager")); got != 0 {
		t.Errorf("%d device managers still alive", got)
	}
}

func TestDeviceManagerCloseErrorSwallowed(t *testing.T) {
	fake := withFake(t)
	fake.Fail("DeviceManagerClose", errors.New("transport closed"))

	dm, err := NewDeviceManager()
	if err != nil {
		t.Fatalf("NewDeviceManager: %v", err)
	}
	if err := dm.Close(); err != nil {
		t.Errorf("Close = %v, want nil", err)
	}
	if got := len(fake.Live("device manager")); got != 0 {
		t.Errorf("%d device managers still alive", got)
	}
}

func TestGetDeviceManagerShared(t *testing.T) {
	withFake(t)

	a, err := GetDeviceManager()
	if err != nil {
		t.Fatalf("GetDeviceManager: %v", err)
	}
	b, err := GetDeviceManager()
	if err != nil {
		t.Fatalf("GetDeviceManager: %v", err)
	}
	if a != b {
		t.Error("GetDeviceManager returned different managers")
	}
	a.Close()
	c, err := GetDeviceManager()
	if err != nil {
		t.Fatalf("GetDeviceManager after Close: %v", err)
	}
	if c == a {
		t.Error("GetDeviceManager returned a closed manager")
	}
}
