package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/dsjlzh/fridabind"
	"github.com/dsjlzh/fridabind/driver"
	"github.com/dsjlzh/fridabind/internal/fakefrida"
)

func newFake(t *testing.T) *fakefrida.Driver {
	t.Helper()
	fake := fakefrida.New()
	fake.AddDevice(fakefrida.DeviceSpec{
		ID:   "local",
		Name: "Local System",
		Type: driver.DeviceTypeLocal,
		Processes: []fakefrida.ProcessSpec{
			{PID: 100, Name: "foo"},
			{PID: 200, Name: "bar"},
		},
		Applications: []fakefrida.ApplicationSpec{
			{Identifier: "com.example.mail", Name: "Mail", PID: 100},
			{Identifier: "com.example.notes", Name: "Notes"},
		},
	})
	fake.AddDevice(fakefrida.DeviceSpec{ID: "usb-1", Name: "Pixel", Type: driver.DeviceTypeUSB})
	fridabind.Register(fake)

	t.Cleanup(func() {
		for _, v := range fake.Violations() {
			t.Errorf("ownership violation: %s", v)
		}
		for _, kind := range []string{"device manager", "device list", "process list", "application list", "session", "script", "options"} {
			if live := fake.Live(kind); len(live) > 0 {
				t.Errorf("%d %s objects left alive", len(live), kind)
			}
		}
	})
	return fake
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewCommand(strings.NewReader(stdin), &out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	newFake(t)

	out, err := run(t, "", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if out != "16.1.4\n" {
		t.Errorf("version = %q", out)
	}

	out, err = run(t, "", "--json", "version")
	if err != nil {
		t.Fatalf("version --json: %v", err)
	}
	var v map[string]interface{}
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if v["major"] != float64(16) || v["version"] != "16.1.4" {
		t.Errorf("version = %v", v)
	}
}

func TestDevices(t *testing.T) {
	newFake(t)

	out, err := run(t, "", "--json", "devices")
	if err != nil {
		t.Fatalf("devices: %v", err)
	}
	var got []deviceInfo
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	want := []deviceInfo{
		{ID: "local", Name: "Local System", Type: "local"},
		{ID: "usb-1", Name: "Pixel", Type: "usb"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("devices = %+v, want %+v", got, want)
	}

	out, err = run(t, "", "devices")
	if err != nil {
		t.Fatalf("devices: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "Id") || !strings.Contains(lines[2], "Pixel") {
		t.Errorf("devices table:\n%s", out)
	}
}

func TestProcesses(t *testing.T) {
	newFake(t)

	out, err := run(t, "", "--json", "ps")
	if err != nil {
		t.Fatalf("ps: %v", err)
	}
	var got []processInfo
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(got) != 2 || got[0].PID != 100 || got[1].Name != "bar" {
		t.Errorf("ps = %+v", got)
	}
}

func TestApplications(t *testing.T) {
	newFake(t)

	out, err := run(t, "", "apps")
	if err != nil {
		t.Fatalf("apps: %v", err)
	}
	for _, want := range []string{"com.example.mail", "Notes", "-"} {
		if !strings.Contains(out, want) {
			t.Errorf("apps output lacks %q:\n%s", want, out)
		}
	}
}

func TestSelectDevice(t *testing.T) {
	newFake(t)

	if _, err := run(t, "", "-U", "ps"); err != nil {
		t.Errorf("ps on usb device: %v", err)
	}
	if _, err := run(t, "", "-D", "nope", "ps"); err == nil {
		t.Error("ps on unknown device succeeded")
	}
}

func TestSpawnResumeKill(t *testing.T) {
	fake := newFake(t)

	out, err := run(t, "", "spawn", "--resume", "/bin/true", "-x")
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	spawned := fake.Spawned()
	if len(spawned) != 1 {
		t.Fatalf("spawned %d processes", len(spawned))
	}
	if out != fmt.Sprintf("%d\n", spawned[0].PID) {
		t.Errorf("spawn printed %q", out)
	}
	if want := []string{"/bin/true", "-x"}; !reflect.DeepEqual(spawned[0].Argv, want) {
		t.Errorf("argv = %v, want %v", spawned[0].Argv, want)
	}
	if got := fake.Resumed(); !reflect.DeepEqual(got, []uint{spawned[0].PID}) {
		t.Errorf("resumed = %v", got)
	}

	if _, err := run(t, "", "kill", "200"); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if got := fake.Killed(); !reflect.DeepEqual(got, []uint{200}) {
		t.Errorf("killed = %v", got)
	}
	if _, err := run(t, "", "kill", "two"); err == nil {
		t.Error("kill with a bad pid succeeded")
	}
}

func TestAttachEval(t *testing.T) {
	fake := newFake(t)

	if _, err := run(t, "", "attach", "-e", "send(1);", "fo"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if n := fake.Calls("SessionCreateScript"); n != 1 {
		t.Errorf("created %d scripts", n)
	}
	if _, err := run(t, "", "attach", "-e", "send(1);", "nothing-matches"); err == nil {
		t.Error("attach to a missing process succeeded")
	}
}

func TestAttachConsole(t *testing.T) {
	fake := newFake(t)

	agent := filepath.Join(t.TempDir(), "agent.js")
	if err := os.WriteFile(agent, []byte("rpc.exports.add = (a, b) => a + b;"), 0o644); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var posted []string
	fake.OnPost(func(h driver.Handle, message string, _ []byte) {
		var req []interface{}
		if json.Unmarshal([]byte(message), &req) == nil && len(req) == 5 && req[0] == "frida:rpc" {
			args, _ := req[4].([]interface{})
			sum := args[0].(float64) + args[1].(float64)
			fake.EmitMessage(h, fmt.Sprintf(`{"type":"send","payload":["frida:rpc",%v,"ok",%v]}`, req[1], sum), nil)
			return
		}
		mu.Lock()
		posted = append(posted, message)
		mu.Unlock()
	})

	stdin := strings.Join([]string{
		`:post {"type":"ping"}`,
		`send(1);`,
		`:call add [2,3]`,
		`:bogus`,
		`:quit`,
		`:post {"type":"never"}`,
	}, "\n")
	out, err := run(t, stdin, "attach", "--load", agent, "100")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !reflect.DeepEqual(posted, []string{`{"type":"ping"}`}) {
		t.Errorf("posted = %v", posted)
	}
	if !strings.Contains(out, "5\n") {
		t.Errorf("rpc result missing:\n%s", out)
	}
	if !strings.Contains(out, "unknown command :bogus") {
		t.Errorf("unknown command not reported:\n%s", out)
	}
	if n := fake.Calls("SessionCreateScript"); n != 2 {
		t.Errorf("created %d scripts, want the agent and one evaluation", n)
	}
}
