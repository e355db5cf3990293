package fridabind

import (
	"context"
	"sync"

	"github.com/buger/jsonparser"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

const rpcTag = "frida:rpc"

// RPCError is an exception thrown by an exported script function.
type RPCError struct {
	Method  string
	Message string
	Name    string
	Stack   string
}

func (err *RPCError) Error() string {
	return err.Message
}

type rpcReply struct {
	ok    bool
	value []byte
	data  []byte
	err   *RPCError
}

// rpcTable matches replies posted by a script to pending calls.
type rpcTable struct {
	mu      sync.Mutex
	next    int64
	pending map[int64]chan *rpcReply
	gone    chan struct{}
	once    sync.Once
}

func newRPCTable() *rpcTable {
	return &rpcTable{
		pending: make(map[int64]chan *rpcReply),
		gone:    make(chan struct{}),
	}
}

func (t *rpcTable) register() (int64, chan *rpcReply) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	ch := make(chan *rpcReply, 1)
	t.pending[t.next] = ch
	return t.next, ch
}

func (t *rpcTable) forget(id int64) {
	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
}

// deliver consumes message if it is an rpc reply. It never blocks.
func (t *rpcTable) deliver(message string, data []byte) bool {
	b := []byte(message)
	if typ, _ := jsonparser.GetString(b, "type"); typ != string(MessageTypeSend) {
		return false
	}
	if tag, _ := jsonparser.GetString(b, "payload", "[0]"); tag != rpcTag {
		return false
	}
	id, err := jsonparser.GetInt(b, "payload", "[1]")
	if err != nil {
		return false
	}
	status, _ := jsonparser.GetString(b, "payload", "[2]")

	reply := &rpcReply{ok: status == "ok", data: data}
	if reply.ok {
		reply.value = rawValue(b, "payload", "[3]")
	} else {
		reply.err = &RPCError{}
		reply.err.Message, _ = jsonparser.GetString(b, "payload", "[3]")
		reply.err.Name, _ = jsonparser.GetString(b, "payload", "[4]")
		reply.err.Stack, _ = jsonparser.GetString(b, "payload", "[5]")
	}

	t.mu.Lock()
	ch, found := t.pending[id]
	delete(t.pending, id)
	t.mu.Unlock()
	if !found {
		log.WithFields(logrus.Fields{
			"id": id,
		}).Debug("Script: rpc reply without caller")
		return true
	}
	ch <- reply
	return true
}

func (t *rpcTable) abort() {
	t.once.Do(func() {
		close(t.gone)
	})
}

// Call invokes method from the script's rpc.exports and waits for the
// result. A result sent with binary data is returned as []byte; anything
// else is the decoded JSON value. The configured RPC timeout applies when
// ctx has no deadline.
func (s *Script) Call(ctx context.Context, method string, args ...interface{}) (interface{}, error) {
	var result interface{}
	reply, err := s.call(ctx, method, args)
	if err != nil {
		return nil, err
	}
	if reply.data != nil {
		return reply.data, nil
	}
	if len(reply.value) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(reply.value, &result); err != nil {
		return nil, xerrors.Errorf("rpc %s: decode result: %w", method, err)
	}
	return result, nil
}

// CallInto is Call decoding the JSON result into v.
func (s *Script) CallInto(ctx context.Context, v interface{}, method string, args ...interface{}) error {
	reply, err := s.call(ctx, method, args)
	if err != nil {
		return err
	}
	if len(reply.value) == 0 {
		return nil
	}
	if err := json.Unmarshal(reply.value, v); err != nil {
		return xerrors.Errorf("rpc %s: decode result: %w", method, err)
	}
	return nil
}

func (s *Script) call(ctx context.Context, method string, args []interface{}) (*rpcReply, error) {
	if err := s.connect(); err != nil {
		return nil, err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, currentConfig().RPCTimeout)
		defer cancel()
	}
	if args == nil {
		args = []interface{}{}
	}

	id, ch := s.rpc.register()
	defer s.rpc.forget(id)

	request, err := json.Marshal([]interface{}{rpcTag, id, "call", method, args})
	if err != nil {
		return nil, xerrors.Errorf("rpc %s: encode request: %w", method, err)
	}
	log.WithFields(logrus.Fields{
		"method": method,
		"id":     id,
	}).Debug("Script: rpc call")
	if err := s.Post(string(request)); err != nil {
		return nil, err
	}

	select {
	case reply := <-ch:
		if !reply.ok {
			reply.err.Method = method
			return nil, reply.err
		}
		return reply, nil
	case <-s.rpc.gone:
		return nil, ErrReleased
	case <-ctx.Done():
		return nil, xerrors.Errorf("rpc %s: %w", method, ctx.Err())
	}
}
