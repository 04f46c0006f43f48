package core

import (
	"context"
	"encoding/json"

	"github.com/defiweb/go-eth/rpc/transport"
)

// Transport is the raw JSON-RPC capability the provider is built on. One Send
// maps to one JSON-RPC exchange; failures propagate unchanged and are never
// retried here.
type Transport interface {
	Send(ctx context.Context, method string, params []any) (json.RawMessage, error)
}

// Listener receives the arguments of an emitted event.
type Listener func(args ...any)

// Emitter is the backend's event capability, keyed by plain string event
// names. The provider validates names before forwarding to it.
type Emitter interface {
	On(event string, fn Listener)
	Once(event string, fn Listener)
	Off(event string, fn Listener)
	Emit(event string, args ...any)
	ListenerCount(event string) int
	Listeners(event string) []Listener
	RemoveAllListeners(event string)
}

// goEthTransport adapts a go-eth RPC transport to the Transport interface.
type goEthTransport struct {
	t transport.Transport
}

// NewGoEthTransport wraps a go-eth transport (HTTP, WebSocket, ...) so it can
// back a Provider.
func NewGoEthTransport(t transport.Transport) Transport {
	return &goEthTransport{t: t}
}

func (g *goEthTransport) Send(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := g.t.Call(ctx, &raw, method, params...); err != nil {
		return nil, err
	}
	return raw, nil
}
