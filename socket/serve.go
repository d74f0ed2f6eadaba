package socket

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mnehpets/onesocket/endpoint"
)

// Serve runs the read loop for ws until the peer goes away or ctx is
// cancelled. Each message is handled to completion before the next is
// read. The connection is closed when Serve returns.
func (ns *Namespace) Serve(ctx context.Context, ws *websocket.Conn) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn := newConn(ws, ns.writeTimeout)
	ns.OnConnect(conn)
	defer func() {
		ns.OnClose(conn)
		conn.close()
	}()

	if ns.readLimit > 0 {
		ws.SetReadLimit(ns.readLimit)
	}
	if ns.pingInterval > 0 {
		wait := 2 * ns.pingInterval
		_ = ws.SetReadDeadline(time.Now().Add(wait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(wait))
		})
		go ns.keepalive(ctx, conn)
	}
	go func() {
		<-ctx.Done()
		conn.close()
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return nil
			}
			ns.log.V(1).Info("read failed", "error", err.Error())
			return err
		}
		if ns.pingInterval > 0 {
			_ = ws.SetReadDeadline(time.Now().Add(2 * ns.pingInterval))
		}
		ns.OnMessage(ctx, conn, data)
	}
}

func (ns *Namespace) keepalive(ctx context.Context, conn *wsConn) {
	t := time.NewTicker(ns.pingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := conn.ping(); err != nil {
				ns.log.V(1).Info("ping failed", "error", err.Error())
				return
			}
		}
	}
}

// Endpoint is an endpoint.EndpointFunc that upgrades the request to a
// websocket served by ns.
func (ns *Namespace) Endpoint(w http.ResponseWriter, r *http.Request, _ struct{}) (endpoint.Renderer, error) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		return nil, endpoint.Error(http.StatusMethodNotAllowed, "", nil)
	}
	if !websocket.IsWebSocketUpgrade(r) {
		return nil, endpoint.Error(http.StatusBadRequest, "websocket upgrade required", nil)
	}
	return &upgradeRenderer{ns: ns}, nil
}

// upgradeRenderer hijacks the response and blocks for the life of the
// connection.
type upgradeRenderer struct {
	ns *Namespace
}

func (u *upgradeRenderer) Render(w http.ResponseWriter, r *http.Request) error {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     u.ns.checkOrigin,
	}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		u.ns.log.V(1).Info("upgrade failed", "error", err.Error(), "remote", r.RemoteAddr)
		return nil
	}
	return u.ns.Serve(r.Context(), ws)
}
