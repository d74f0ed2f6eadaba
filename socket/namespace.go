package socket

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	vm "github.com/VictoriaMetrics/metrics"
	"github.com/go-logr/logr"
	"github.com/hashicorp/go-multierror"

	"github.com/mnehpets/onesocket/jsonrpc"
	"github.com/mnehpets/onesocket/metrics"
	"github.com/mnehpets/onesocket/rpc"
)

const (
	defaultReadLimit    = 1 << 20
	defaultWriteTimeout = 10 * time.Second
	defaultPingInterval = 30 * time.Second
)

// Namespace dispatches messages for one namespace's methods.
//
// The method map is taken from the registry once, in New, so methods
// registered afterwards are not visible to an existing Namespace.
type Namespace struct {
	name    string
	handler rpc.MessageHandler
	methods map[string]*rpc.Method
	log     logr.Logger

	readLimit    int64
	writeTimeout time.Duration
	pingInterval time.Duration
	checkOrigin  func(r *http.Request) bool

	mu    sync.Mutex
	conns map[Conn]struct{}

	set               *vm.Set
	messages          *vm.Counter
	errors            *vm.Counter
	duration          *vm.Histogram
	broadcastFailures *vm.Counter
	open              *atomic.Int64
}

// Option configures a Namespace.
type Option func(*Namespace)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logr.Logger) Option {
	return func(ns *Namespace) {
		ns.log = l
	}
}

// WithReadLimit caps the size in bytes of inbound messages.
func WithReadLimit(n int64) Option {
	return func(ns *Namespace) {
		ns.readLimit = n
	}
}

// WithWriteTimeout bounds every write to a connection. Zero disables it.
func WithWriteTimeout(d time.Duration) Option {
	return func(ns *Namespace) {
		ns.writeTimeout = d
	}
}

// WithPingInterval sets how often idle connections are pinged. A connection
// that answers neither a ping nor sends a message within twice the interval
// is closed. Zero disables keepalive.
func WithPingInterval(d time.Duration) Option {
	return func(ns *Namespace) {
		ns.pingInterval = d
	}
}

// WithCheckOrigin sets the upgrade origin check, such as
// middleware.OriginPolicy.CheckOrigin. The default accepts same-host
// origins only.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(ns *Namespace) {
		ns.checkOrigin = fn
	}
}

// WithMetricsSet records metrics into set instead of metrics.Set.
// Namespaces with the same name on one set share their series.
func WithMetricsSet(set *vm.Set) Option {
	return func(ns *Namespace) {
		ns.set = set
	}
}

// New creates the dispatcher for the named namespace. A nil handler
// selects JSON-RPC 2.0.
func New(name string, registry *rpc.Registry, handler rpc.MessageHandler, opts ...Option) *Namespace {
	if handler == nil {
		handler = jsonrpc.NewHandler()
	}
	ns := &Namespace{
		name:         name,
		handler:      handler,
		methods:      map[string]*rpc.Method{},
		log:          logr.Discard(),
		readLimit:    defaultReadLimit,
		writeTimeout: defaultWriteTimeout,
		pingInterval: defaultPingInterval,
		conns:        map[Conn]struct{}{},
		set:          metrics.Set,
	}
	if registry != nil {
		ns.methods = registry.MethodsFor(name)
	}
	for _, opt := range opts {
		opt(ns)
	}
	ns.log = ns.log.WithValues("namespace", name)

	ns.messages = ns.set.GetOrCreateCounter(metrics.Name("messages_total", name))
	ns.errors = ns.set.GetOrCreateCounter(metrics.Name("message_errors_total", name))
	ns.duration = ns.set.GetOrCreateHistogram(metrics.Name("message_duration_seconds", name))
	ns.broadcastFailures = ns.set.GetOrCreateCounter(metrics.Name("broadcast_failures_total", name))
	ns.open = connectionGauge(ns.set, name)
	return ns
}

// Name returns the namespace name.
func (ns *Namespace) Name() string {
	return ns.name
}

// Methods returns the namespace's methods sorted by name.
func (ns *Namespace) Methods() []*rpc.Method {
	out := make([]*rpc.Method, 0, len(ns.methods))
	for _, m := range ns.methods {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of tracked connections.
func (ns *Namespace) Len() int {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	return len(ns.conns)
}

// OnConnect starts tracking conn for broadcasts.
func (ns *Namespace) OnConnect(conn Conn) {
	ns.mu.Lock()
	if _, ok := ns.conns[conn]; !ok {
		ns.conns[conn] = struct{}{}
		ns.open.Add(1)
	}
	ns.mu.Unlock()
	ns.log.V(1).Info("connection opened")
}

// OnClose stops tracking conn.
func (ns *Namespace) OnClose(conn Conn) {
	ns.mu.Lock()
	_, ok := ns.conns[conn]
	if ok {
		delete(ns.conns, conn)
		ns.open.Add(-1)
	}
	ns.mu.Unlock()
	if ok {
		ns.log.V(1).Info("connection closed")
	}
}

// OnMessage handles one inbound message and sends the reply, if any, to
// conn. Failures are logged and never returned. Callers must not invoke
// OnMessage concurrently for the same connection if replies are to keep
// request order.
func (ns *Namespace) OnMessage(ctx context.Context, conn Conn, data []byte) {
	start := time.Now()
	ns.messages.Inc()
	defer ns.duration.UpdateDuration(start)
	defer func() {
		if r := recover(); r != nil {
			ns.errors.Inc()
			ns.log.V(1).Info("recovered while handling message", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()

	ns.log.V(2).Info("message received", "bytes", len(data))
	res := ns.handler.Handle(data, ns.methods)
	if res.Error {
		ns.errors.Inc()
	}
	reply, err := ns.handler.Process(ctx, res)
	if err != nil {
		ns.errors.Inc()
		ns.log.V(1).Info("processing message failed", "error", err.Error())
		return
	}
	if reply == nil {
		return
	}
	if !conn.IsOpen() {
		ns.log.V(1).Info("dropping reply for closed connection")
		return
	}
	if err := conn.Send(reply); err != nil {
		ns.log.V(1).Info("sending reply failed", "error", err.Error())
	}
}

// Broadcast sends data to every open connection. A failed write does not
// stop delivery to the others; all failures are returned together.
func (ns *Namespace) Broadcast(data []byte) error {
	ns.mu.Lock()
	conns := make([]Conn, 0, len(ns.conns))
	for c := range ns.conns {
		conns = append(conns, c)
	}
	ns.mu.Unlock()

	var result *multierror.Error
	for _, c := range conns {
		if err := send(c, data); err != nil {
			ns.broadcastFailures.Inc()
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		ns.log.V(1).Info("broadcast incomplete", "failures", result.Len(), "connections", len(conns))
		return err
	}
	return nil
}

// send writes data to an open conn, turning a panic in the Conn into an error.
func send(c Conn, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("socket: send panicked: %v", r)
		}
	}()
	if !c.IsOpen() {
		return nil
	}
	return c.Send(data)
}

type gaugeKey struct {
	set  *vm.Set
	name string
}

var (
	gaugesMu sync.Mutex
	gauges   = map[gaugeKey]*atomic.Int64{}
)

// connectionGauge returns the open connection count shared by every
// Namespace with this name on set, registering its gauge on first use.
func connectionGauge(set *vm.Set, name string) *atomic.Int64 {
	gaugesMu.Lock()
	defer gaugesMu.Unlock()
	key := gaugeKey{set: set, name: name}
	if g, ok := gauges[key]; ok {
		return g
	}
	g := new(atomic.Int64)
	gauges[key] = g
	set.GetOrCreateGauge(metrics.Name("connections", name), func() float64 {
		return float64(g.Load())
	})
	return g
}
