// Command wsrpc serves two websocket RPC namespaces: "a" speaks the simple
// protocol on /a and "b" speaks JSON-RPC 2.0 on /b. Clients of /b also
// receive a "tick" notification every ten seconds.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"

	"github.com/mnehpets/onesocket/config"
	"github.com/mnehpets/onesocket/endpoint"
	"github.com/mnehpets/onesocket/jsonrpc"
	"github.com/mnehpets/onesocket/logging"
	"github.com/mnehpets/onesocket/metrics"
	"github.com/mnehpets/onesocket/middleware"
	"github.com/mnehpets/onesocket/rpc"
	"github.com/mnehpets/onesocket/simple"
	"github.com/mnehpets/onesocket/socket"
)

// NamespaceA is served with the simple protocol.
type NamespaceA struct {
	log logr.Logger
}

type sumArgs struct {
	_ struct{} `rpc:"blabla"`
	A float64  `json:"a"`
	B float64  `json:"b"`
}

func (n *NamespaceA) Sum(ctx context.Context, args sumArgs) (float64, error) {
	n.log.Info("adding", "a", args.A, "b", args.B)
	return args.A + args.B, nil
}

// NamespaceB is served with JSON-RPC 2.0.
type NamespaceB struct {
	log logr.Logger
}

func (n *NamespaceB) Sum(ctx context.Context, args struct {
	_ struct{} `rpc:"sum"`
	A float64  `json:"a"`
	B float64  `json:"b"`
}) (float64, error) {
	n.log.Info("adding", "a", args.A, "b", args.B)
	return args.A + args.B, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(0, os.Stderr).Error(err, "cannot load configuration")
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, os.Stderr)

	reg := rpc.NewRegistry()
	if err := reg.Register("a", &NamespaceA{log: log.WithName("a")}); err != nil {
		log.Error(err, "register namespace a")
		os.Exit(1)
	}
	if err := reg.Register("b", &NamespaceB{log: log.WithName("b")}); err != nil {
		log.Error(err, "register namespace b")
		os.Exit(1)
	}

	origins := middleware.NewOriginPolicy(cfg.AllowedOrigins...)
	opts := []socket.Option{
		socket.WithLogger(log.WithName("socket")),
		socket.WithReadLimit(cfg.ReadLimit),
		socket.WithWriteTimeout(cfg.WriteTimeout),
		socket.WithPingInterval(cfg.PingInterval),
		socket.WithCheckOrigin(origins.CheckOrigin),
	}
	a := socket.New("a", reg, simple.NewHandler(simple.WithLogger(log.WithName("simple"))), opts...)
	b := socket.New("b", reg, jsonrpc.NewHandler(jsonrpc.WithLogger(log.WithName("jsonrpc"))), opts...)
	for _, ns := range []*socket.Namespace{a, b} {
		names := []string{}
		for _, m := range ns.Methods() {
			names = append(names, m.Name)
		}
		log.Info("namespace ready", "namespace", ns.Name(), "methods", names)
	}

	headers := middleware.NewSecurityHeadersProcessor(middleware.WithCrossOriginResourcePolicy("cross-origin"))
	httpLog := log.WithName("http")

	mux := http.NewServeMux()
	mux.Handle("/a", endpoint.Handler(a.Endpoint, origins).WithLogger(httpLog))
	mux.Handle("/b", endpoint.Handler(b.Endpoint, origins).WithLogger(httpLog))
	mux.Handle("GET /methods/{namespace}", endpoint.Handler(socket.DirectoryEndpoint(a, b), origins, headers).WithLogger(httpLog))
	mux.HandleFunc("GET /metrics", metrics.WritePrometheus)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go tick(ctx, log.WithName("tick"), b)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		// Cancelling ctx also ends the hijacked websocket connections.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	log.Info("listening", "addr", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error(err, "server failed")
		os.Exit(1)
	}
	log.Info("shutdown")
}

func tick(ctx context.Context, log logr.Logger, ns *socket.Namespace) {
	t := time.NewTicker(10 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			frame, err := jsonrpc.Notification("tick", map[string]any{"time": now.UTC().Format(time.RFC3339)})
			if err != nil {
				log.Error(err, "build notification")
				continue
			}
			if err := ns.Broadcast(frame); err != nil {
				log.V(1).Info("broadcast failed", "error", err.Error())
			}
		}
	}
}
