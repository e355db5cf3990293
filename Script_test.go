package fridabind

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dsjlzh/fridabind/driver"
	"github.com/dsjlzh/fridabind/internal/fakefrida"
)

type received struct {
	message string
	data    []byte
}

func collect(t *testing.T, s *Script) <-chan received {
	t.Helper()
	ch := make(chan received, 16)
	err := s.OnMessage(MessageHandlerFunc(func(message string, data []byte) {
		ch <- received{message, data}
	}))
	if err != nil {
		t.Fatalf("OnMessage: %v", err)
	}
	return ch
}

func TestScriptMessageData(t *testing.T) {
	fake := withFake(t)
	d := localDevice(t, fake)
	s := createScript(t, attach(t, d, 100), "agent")
	ch := collect(t, s)

	h := s.obj.ptr
	fake.EmitMessage(h, `{"type":"send","payload":"absent"}`, nil)
	fake.EmitMessage(h, `{"type":"send","payload":"bytes"}`, []byte{1, 2, 3})
	fake.EmitMessage(h, `{"type":"send","payload":"empty"}`, []byte{})

	got := receive(t, ch)
	if got.message != `{"type":"send","payload":"absent"}` || got.data != nil {
		t.Errorf("first message = %q %v, want nil data", got.message, got.data)
	}
	got = receive(t, ch)
	if !bytes.Equal(got.data, []byte{1, 2, 3}) {
		t.Errorf("second message data = %v, want [1 2 3]", got.data)
	}
	got = receive(t, ch)
	if got.data == nil || len(got.data) != 0 {
		t.Errorf("third message data = %#v, want empty non-nil", got.data)
	}
}

func TestScriptMessageOrder(t *testing.T) {
	fake := withFake(t)
	d := localDevice(t, fake)
	s := createScript(t, attach(t, d, 100), "agent")
	ch := collect(t, s)

	for i := 0; i < 10; i++ {
		fake.EmitMessage(s.obj.ptr, fmt.Sprintf(`{"type":"send","payload":%d}`, i), nil)
	}
	for i := 0; i < 10; i++ {
		m, err := ParseMessage(receive(t, ch).message)
		if err != nil {
			t.Fatalf("ParseMessage: %v", err)
		}
		var n int
		if err := m.Decode(&n); err != nil || n != i {
			t.Errorf("message %d decoded to %d, %v", i, n, err)
		}
	}
}

func TestScriptOnMessageReplaceAndRemove(t *testing.T) {
	fake := withFake(t)
	d := localDevice(t, fake)
	s := createScript(t, attach(t, d, 100), "agent")

	first := collect(t, s)
	second := collect(t, s)
	if got := fake.Signals(s.obj.ptr); got != 1 {
		t.Errorf("%d signal handlers connected, want 1", got)
	}
	fake.EmitMessage(s.obj.ptr, `{"type":"send","payload":1}`, nil)
	receive(t, second)
	select {
	case <-first:
		t.Error("replaced handler was called")
	default:
	}

	s.OnMessage(nil)
	fake.EmitMessage(s.obj.ptr, `{"type":"log","level":"info","payload":"unhandled"}`, nil)
	s.disp.close()
	s.disp.wait()
	select {
	case <-second:
		t.Error("removed handler was called")
	default:
	}
}

func TestScriptCloseUnloads(t *testing.T) {
	fake := withFake(t)
	d := localDevice(t, fake)
	sess := attach(t, d, 100)

	s, err := sess.CreateScript("send(1);", nil)
	if err != nil {
		t.Fatalf("CreateScript: %v", err)
	}
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	h := s.obj.ptr
	if !fake.Loaded(h) {
		t.Fatal("script not loaded")
	}
	s.Close()
	s.Close()
	if got := fake.Calls("ScriptUnload"); got != 1 {
		t.Errorf("unload ran %d times, want 1", got)
	}
	if !s.IsDestroyed() {
		t.Error("closed script is not destroyed")
	}
	if got := fake.Refs(h); got != 0 {
		t.Errorf("script refs = %d, want 0", got)
	}
}

func TestScriptCloseAfterUnload(t *testing.T) {
	fake := withFake(t)
	d := localDevice(t, fake)
	s := createScript(t, attach(t, d, 100), "agent")

	s.Load()
	if err := s.Unload(); err != nil {
		t.Fatalf("Unload: %v", err)
	}
	s.Close()
	if got := fake.Calls("ScriptUnload"); got != 1 {
		t.Errorf("unload ran %d times, want 1", got)
	}
	if err := s.Load(); !errors.Is(err, ErrReleased) {
		t.Errorf("Load after Close = %v, want ErrReleased", err)
	}
}

func TestScriptNameAndLoadError(t *testing.T) {
	fake := withFake(t)
	d := localDevice(t, fake)
	s := createScript(t, attach(t, d, 100), "agent")

	if s.Name() != "agent" || fake.ScriptName(s.obj.ptr) != "agent" {
		t.Errorf("Name = %q, native name = %q", s.Name(), fake.ScriptName(s.obj.ptr))
	}
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	err := s.Load()
	var fe *Error
	if !errors.As(err, &fe) || fe.Msg != "Script is already loaded" || fe.Code != ErrorInvalidOperation {
		t.Errorf("second Load = %v", err)
	}
	if err := s.Eternalize(); err != nil {
		t.Errorf("Eternalize: %v", err)
	}
}

func TestScriptPost(t *testing.T) {
	fake := withFake(t)
	d := localDevice(t, fake)
	s := createScript(t, attach(t, d, 100), "agent")

	s.Post(`{"type":"ping"}`)
	s.PostWithData(`{"type":"blob"}`, []byte{7})
	s.PostWithData(`{"type":"empty"}`, []byte{})

	posts := fake.Posts(s.obj.ptr)
	if len(posts) != 3 {
		t.Fatalf("%d posts, want 3", len(posts))
	}
	if posts[0].Message != `{"type":"ping"}` || posts[0].Data != nil {
		t.Errorf("post 0 = %+v", posts[0])
	}
	if !bytes.Equal(posts[1].Data, []byte{7}) {
		t.Errorf("post 1 = %+v", posts[1])
	}
	if posts[2].Data == nil {
		t.Errorf("post 2 lost its empty payload")
	}
}

// serveRPC answers every rpc call posted to the fake with reply(method, args).
func serveRPC(fake *fakefrida.Driver, reply func(method string, args []interface{}) (status, value string, data []byte)) {
	fake.OnPost(func(h driver.Handle, message string, _ []byte) {
		var req []interface{}
		if err := json.Unmarshal([]byte(message), &req); err != nil || len(req) != 5 || req[0] != rpcTag {
			return
		}
		args, _ := req[4].([]interface{})
		status, value, data := reply(req[3].(string), args)
		fake.EmitMessage(h, fmt.Sprintf(`{"type":"send","payload":["frida:rpc",%v,"%s",%s]}`, req[1], status, value), data)
	})
}

func TestScriptCall(t *testing.T) {
	fake := withFake(t)
	d := localDevice(t, fake)
	s := createScript(t, attach(t, d, 100), "agent")

	serveRPC(fake, func(method string, args []interface{}) (string, string, []byte) {
		switch method {
		case "add":
			return "ok", fmt.Sprintf("%v", args[0].(float64)+args[1].(float64)), nil
		case "dump":
			return "ok", "null", []byte{0xde, 0xad}
		case "info":
			return "ok", `{"name":"agent","hooks":3}`, nil
		}
		return "error", `"unable to find method '` + method + `'","Error","Error: unable to find method"`, nil
	})

	got, err := s.Call(context.Background(), "add", 2, 3)
	if err != nil {
		t.Fatalf("Call(add): %v", err)
	}
	if got != float64(5) {
		t.Errorf("add = %#v, want 5", got)
	}

	got, err = s.Call(context.Background(), "dump")
	if err != nil {
		t.Fatalf("Call(dump): %v", err)
	}
	if b, ok := got.([]byte); !ok || !bytes.Equal(b, []byte{0xde, 0xad}) {
		t.Errorf("dump = %#v, want data", got)
	}

	var info struct {
		Name  string `json:"name"`
		Hooks int    `json:"hooks"`
	}
	if err := s.CallInto(context.Background(), &info, "info"); err != nil {
		t.Fatalf("CallInto(info): %v", err)
	}
	if info.Name != "agent" || info.Hooks != 3 {
		t.Errorf("info = %+v", info)
	}

	_, err = s.Call(context.Background(), "missing")
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("Call(missing) = %v, want *RPCError", err)
	}
	if rpcErr.Message != "unable to find method 'missing'" || rpcErr.Name != "Error" || rpcErr.Method != "missing" {
		t.Errorf("rpc error = %+v", rpcErr)
	}
}

func TestScriptCallDoesNotReachHandler(t *testing.T) {
	fake := withFake(t)
	d := localDevice(t, fake)
	s := createScript(t, attach(t, d, 100), "agent")
	ch := collect(t, s)

	serveRPC(fake, func(string, []interface{}) (string, string, []byte) {
		return "ok", "1", nil
	})
	if _, err := s.Call(context.Background(), "one"); err != nil {
		t.Fatalf("Call: %v", err)
	}
	fake.EmitMessage(s.obj.ptr, `{"type":"send","payload":"after"}`, nil)
	if got := receive(t, ch); got.message != `{"type":"send","payload":"after"}` {
		t.Errorf("handler got %q, want the plain message", got.message)
	}
}

func TestScriptCallTimeout(t *testing.T) {
	fake := withFake(t)
	d := localDevice(t, fake)
	s := createScript(t, attach(t, d, 100), "agent")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := s.Call(ctx, "never"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Call = %v, want DeadlineExceeded", err)
	}
}

func TestScriptCallAfterClose(t *testing.T) {
	fake := withFake(t)
	d := localDevice(t, fake)
	s := createScript(t, attach(t, d, 100), "agent")

	done := make(chan error, 1)
	go func() {
		_, err := s.Call(context.Background(), "never")
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	s.Close()
	if err := receive(t, done); !errors.Is(err, ErrReleased) {
		t.Errorf("Call = %v, want ErrReleased", err)
	}
}

func TestScriptMessageQueueFull(t *testing.T) {
	fake := withFake(t)
	cfg := currentConfig()
	cfg.MessageQueueSize = 1
	if err := Configure(cfg); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	d := localDevice(t, fake)
	s := createScript(t, attach(t, d, 100), "agent")

	started := make(chan struct{})
	release := make(chan struct{})
	var handled []string
	err := s.OnMessage(MessageHandlerFunc(func(message string, data []byte) {
		if len(handled) == 0 {
			close(started)
			<-release
		}
		handled = append(handled, message)
	}))
	if err != nil {
		t.Fatalf("OnMessage: %v", err)
	}

	fake.EmitMessage(s.obj.ptr, `{"type":"send","payload":1}`, nil)
	<-started
	fake.EmitMessage(s.obj.ptr, `{"type":"send","payload":2}`, nil)

	emitted := make(chan struct{})
	go func() {
		fake.EmitMessage(s.obj.ptr, `{"type":"send","payload":3}`, nil)
		close(emitted)
	}()
	select {
	case <-emitted:
	case <-time.After(5 * time.Second):
		t.Fatal("emitting a message blocked on a busy handler")
	}

	close(release)
	s.disp.close()
	s.disp.wait()
	if len(handled) != 2 || handled[1] != `{"type":"send","payload":2}` {
		t.Errorf("handled %q, want the first two messages", handled)
	}
}
