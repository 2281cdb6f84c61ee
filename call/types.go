package call

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/coder/websocket"
)

// CallHandler is the user-supplied logic behind a Handler: Init runs once
// per socket during the hello handshake, and Call runs once per multiplexed
// call the client opens over that socket.
type CallHandler[Init any] interface {
	// Init builds the per-socket value handed to every Call on this socket.
	Init(ctx context.Context, req *http.Request) (Init, error)

	// Call serves a single multiplexed call until active.Context() is done.
	// unlockOnce must be invoked once the call has read enough of its initial
	// state to allow the next call on the same socket to start; calling it
	// more than once is a no-op.
	Call(active *ActiveCall, init Init, unlockOnce func()) error
}

// Handler wires a CallHandler up to runSocket, plus the rate limits applied
// to the sockets it serves.
type Handler[Init any] struct {
	CallHandler CallHandler[Init]

	// SkipOriginVerify allows any hostname to connect here, not just our own.
	SkipOriginVerify bool

	CallLimit   *LimitConfig
	PacketLimit *LimitConfig
}

func (ch *Handler[Init]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	options := &websocket.AcceptOptions{InsecureSkipVerify: ch.SkipOriginVerify}
	sock, err := websocket.Accept(w, r, options)
	if err != nil {
		log.Printf("got err setting up websocket %s: %v", r.URL.Path, err)
		http.Error(w, "could not set up websocket", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithCancelCause(r.Context())
	err = ch.runSocket(ctx, r, sock)
	cancel(err)

	var closeError websocket.CloseError
	if errors.As(err, &closeError) {
		log.Printf("shutdown socket due to known reason: %+v", closeError)
		sock.Close(closeError.Code, closeError.Reason)
	} else if err != nil && err != context.Canceled {
		log.Printf("shutdown socket due to error: %v", err)
		sock.Close(websocket.StatusInternalError, "")
	} else {
		sock.Close(websocket.StatusNormalClosure, "")
	}
}
