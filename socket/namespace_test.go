package socket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	vm "github.com/VictoriaMetrics/metrics"
	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-multierror"

	"github.com/mnehpets/onesocket/metrics"
	"github.com/mnehpets/onesocket/rpc"
	"github.com/mnehpets/onesocket/simple"
)

type calc struct {
	mu     sync.Mutex
	pinged int
}

type sumParams struct {
	A int `json:"a"`
	B int `json:"b"`
}

func (c *calc) Sum(ctx context.Context, p sumParams) (int, error) {
	return p.A + p.B, nil
}

func (c *calc) Ping(ctx context.Context, p struct{}) error {
	c.mu.Lock()
	c.pinged++
	c.mu.Unlock()
	return nil
}

func (c *calc) Echo(ctx context.Context, p struct {
	Text string `json:"text"`
}) (string, error) {
	return p.Text, nil
}

func (c *calc) Slow(ctx context.Context, p struct {
	N int `json:"n"`
}) (int, error) {
	// Later requests finish faster, so replies only stay ordered if
	// messages are handled one at a time.
	time.Sleep(time.Duration(10-p.N%10) * time.Millisecond)
	return p.N, nil
}

func newRegistry(t *testing.T) *rpc.Registry {
	t.Helper()
	reg := rpc.NewRegistry()
	if err := reg.Register("b", &calc{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Register("a", &calc{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return reg
}

type fakeConn struct {
	mu     sync.Mutex
	sent   []string
	closed bool
	err    error
}

func (f *fakeConn) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, string(data))
	return nil
}

func (f *fakeConn) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed
}

func (f *fakeConn) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type panicConn struct{}

func (panicConn) Send([]byte) error { panic("write exploded") }
func (panicConn) IsOpen() bool { return true }

func counter(set *vm.Set, name, namespace string) uint64 {
	return set.GetOrCreateCounter(metrics.Name(name, namespace)).Get()
}

func TestOnMessage_DefaultHandlerIsJSONRPC(t *testing.T) {
	set := vm.NewSet()
	ns := New("b", newRegistry(t), nil, WithMetricsSet(set))
	conn := &fakeConn{}

	ns.OnMessage(context.Background(), conn, []byte(`{"jsonrpc":"2.0","method":"Sum","params":{"b":2,"a":1},"id":1}`))
	ns.OnMessage(context.Background(), conn, []byte(`{"jsonrpc":"2.0","method":"Ping"}`))
	ns.OnMessage(context.Background(), conn, []byte(`{"jsonrpc":"2.0","method":"Nope","id":"x"}`))

	want := []string{
		`{"jsonrpc":"2.0","result":3,"id":1}`,
		`{"jsonrpc":"2.0","error":{"code":-32601,"message":"Method not found","data":"Method with name 'Nope' could not be found."},"id":"x"}`,
	}
	if diff := cmp.Diff(want, conn.messages()); diff != "" {
		t.Fatalf("replies mismatch (-want +got):\n%s", diff)
	}
	if got := counter(set, "messages_total", "b"); got != 3 {
		t.Errorf("messages_total = %d, want 3", got)
	}
	if got := counter(set, "message_errors_total", "b"); got != 1 {
		t.Errorf("message_errors_total = %d, want 1", got)
	}
}

func TestOnMessage_Simple(t *testing.T) {
	ns := New("a", newRegistry(t), simple.NewHandler(), WithMetricsSet(vm.NewSet()))
	conn := &fakeConn{}

	for _, msg := range []string{
		`{"method":"Sum","params":[1,2]}`,
		`{"method":"Echo","params":{"text":"hi"}}`,
		`{"method":"Ping"}`,
		`{"method":"Sum","params":[1]}`,
		`[]`,
	} {
		ns.OnMessage(context.Background(), conn, []byte(msg))
	}

	want := []string{
		"3",
		"hi",
		"Expected 2 params. Received 1.",
		"Request must include prop 'method' with value of type 'string'",
	}
	if diff := cmp.Diff(want, conn.messages()); diff != "" {
		t.Fatalf("replies mismatch (-want +got):\n%s", diff)
	}
}

func TestOnMessage_ClosedConnGetsNoReply(t *testing.T) {
	ns := New("b", newRegistry(t), nil, WithMetricsSet(vm.NewSet()))
	conn := &fakeConn{closed: true}
	ns.OnMessage(context.Background(), conn, []byte(`{"jsonrpc":"2.0","method":"Sum","params":[1,2],"id":1}`))
	if got := conn.messages(); len(got) != 0 {
		t.Fatalf("sent %v to closed connection", got)
	}
}

type panicHandler struct{}

func (panicHandler) Handle([]byte, map[string]*rpc.Method) *rpc.HandlerResult {
	panic("handler bug")
}

func (panicHandler) Process(context.Context, *rpc.HandlerResult) ([]byte, error) {
	return nil, nil
}

type failingHandler struct{}

func (failingHandler) Handle([]byte, map[string]*rpc.Method) *rpc.HandlerResult {
	return &rpc.HandlerResult{Func: rpc.Nop}
}

func (failingHandler) Process(context.Context, *rpc.HandlerResult) ([]byte, error) {
	return nil, errors.New("encode failed")
}

func TestOnMessage_SwallowsHandlerFailures(t *testing.T) {
	for name, h := range map[string]rpc.MessageHandler{
		"panic": panicHandler{},
		"error": failingHandler{},
	} {
		t.Run(name, func(t *testing.T) {
			set := vm.NewSet()
			ns := New("b", newRegistry(t), h, WithMetricsSet(set))
			conn := &fakeConn{}
			ns.OnMessage(context.Background(), conn, []byte(`{}`))
			if got := conn.messages(); len(got) != 0 {
				t.Fatalf("sent %v", got)
			}
			if got := counter(set, "message_errors_total", "b"); got != 1 {
				t.Errorf("message_errors_total = %d, want 1", got)
			}
		})
	}
}

func TestBroadcast_DeliversDespiteFailures(t *testing.T) {
	set := vm.NewSet()
	ns := New("b", newRegistry(t), nil, WithMetricsSet(set))

	var healthy []*fakeConn
	for i := 0; i < 4; i++ {
		c := &fakeConn{}
		healthy = append(healthy, c)
		ns.OnConnect(c)
	}
	broken := &fakeConn{err: errors.New("write: broken pipe")}
	closed := &fakeConn{closed: true}
	exploding := panicConn{}
	ns.OnConnect(broken)
	ns.OnConnect(closed)
	ns.OnConnect(exploding)

	err := ns.Broadcast([]byte("tick"))
	var merr *multierror.Error
	if !errors.As(err, &merr) || merr.Len() != 2 {
		t.Fatalf("Broadcast err = %v, want two aggregated failures", err)
	}
	for i, c := range healthy {
		if diff := cmp.Diff([]string{"tick"}, c.messages()); diff != "" {
			t.Errorf("conn %d mismatch (-want +got):\n%s", i, diff)
		}
	}
	if got := closed.messages(); len(got) != 0 {
		t.Errorf("closed conn received %v", got)
	}
	if got := counter(set, "broadcast_failures_total", "b"); got != 2 {
		t.Errorf("broadcast_failures_total = %d, want 2", got)
	}

	ns.OnClose(broken)
	ns.OnClose(exploding)
	if err := ns.Broadcast([]byte("tock")); err != nil {
		t.Fatalf("Broadcast after removing failing conns: %v", err)
	}
	if got := ns.Len(); got != 5 {
		t.Errorf("Len = %d, want 5", got)
	}
}

func TestNew_MethodsAreSnapshot(t *testing.T) {
	reg := newRegistry(t)
	ns := New("b", reg, nil, WithMetricsSet(vm.NewSet()))
	if err := reg.RegisterFunc("b", "late", func(ctx context.Context, p struct{}) error { return nil }); err != nil {
		t.Fatalf("RegisterFunc: %v", err)
	}

	var names []string
	for _, m := range ns.Methods() {
		names = append(names, m.Name)
	}
	if diff := cmp.Diff([]string{"Echo", "Ping", "Slow", "Sum"}, names); diff != "" {
		t.Fatalf("methods mismatch (-want +got):\n%s", diff)
	}
	if ns.Name() != "b" {
		t.Errorf("Name = %q", ns.Name())
	}
}

func TestNew_UnknownNamespaceHasNoMethods(t *testing.T) {
	ns := New("zzz", newRegistry(t), simple.NewHandler(), WithMetricsSet(vm.NewSet()))
	conn := &fakeConn{}
	ns.OnMessage(context.Background(), conn, []byte(`{"method":"Sum","params":[1,2]}`))
	if diff := cmp.Diff([]string{"Method with name 'Sum' could not be found."}, conn.messages()); diff != "" {
		t.Fatalf("replies mismatch (-want +got):\n%s", diff)
	}
}

func TestConnectionsGauge_SharedName(t *testing.T) {
	set := vm.NewSet()
	first := New("x", newRegistry(t), nil, WithMetricsSet(set))
	second := New("x", newRegistry(t), nil, WithMetricsSet(set))
	gauge := set.GetOrCreateGauge(metrics.Name("connections", "x"), nil)

	a, b := &fakeConn{}, &fakeConn{}
	first.OnConnect(a)
	second.OnConnect(b)
	second.OnConnect(b)
	if got := gauge.Get(); got != 2 {
		t.Fatalf("connections = %v, want 2", got)
	}

	second.OnClose(b)
	second.OnClose(b)
	if got := gauge.Get(); got != 1 {
		t.Fatalf("connections after close = %v, want 1", got)
	}
}
