package collabsync

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/samthor/ivrope/bimap"
	"github.com/samthor/ivrope/call"
	"github.com/samthor/ivrope/guard"
)

// Init is built once per socket during the hello handshake: which document
// it wants to join, who it claims to be, and (if a Guard is configured) the
// admission session backing that join.
type Init struct {
	DocID    DocID
	ClientID string

	guardSession guard.Session[AuthToken]
}

// handler implements call.CallHandler[Init], adapted from
// call/runner.go's activeSession/activeCall protocol to a simplified
// one-call-per-socket shape: this module only ever opens a single logical
// call per websocket connection, so the multiplexing machinery in runner.go
// is exercised but never actually juggles more than one active call.
type handler struct {
	server *Server
}

func (h *handler) Init(ctx context.Context, req *http.Request) (Init, error) {
	docID := DocID(req.URL.Query().Get("doc"))
	if docID == "" {
		return Init{}, fmt.Errorf("collabsync: missing doc query param")
	}

	clientID := req.URL.Query().Get("client")
	if clientID == "" {
		clientID = uuid.NewString()
	}

	if h.server.guard == nil {
		return Init{DocID: docID, ClientID: clientID}, nil
	}

	gs, err := h.server.guard.RunSession(docID)
	if err != nil {
		return Init{}, err
	}

	select {
	case _, ok := <-gs.TokenCh():
		if !ok {
			return Init{}, fmt.Errorf("collabsync: no valid token for %q", docID)
		}
	case <-ctx.Done():
		gs.Stop()
		return Init{}, context.Cause(ctx)
	}

	return Init{DocID: docID, ClientID: clientID, guardSession: gs}, nil
}

func (h *handler) Call(active *call.ActiveCall, init Init, unlockOnce func()) error {
	unlockOnce() // we never open a second call on this socket

	if init.guardSession != nil {
		defer init.guardSession.Stop()
	}

	doc, done, err := h.server.holder.For(active.Context(), init.DocID)
	if err != nil {
		return err
	}

	if init.guardSession != nil {
		go func() {
			// Drain per Guard's contract; a close means every admitting
			// token expired, but we let the read loop notice disconnection
			// on its own rather than force-closing the socket mid-op.
			for range init.guardSession.TokenCh() {
			}
		}()
	}

	listener := doc.Watch().Join(active.Context())
	go func() {
		for {
			b, ok := listener.Next()
			if !ok {
				return
			}
			active.WriteJSON(b)
		}
	}()

	var pending bimap.Map[int, int] // localID <-> seq, for idempotent resubmission
	localIDs := call.NewIDGenerator() // mints a local id for ops the client submitted without one

	for {
		var op ClientOp
		if err := active.ReadJSON(&op); err != nil {
			select {
			case <-done:
			default:
			}
			return err
		}

		if op.LocalID == 0 {
			op.LocalID = <-localIDs
		}

		if seq, ok := pending.Get(op.LocalID); ok {
			active.WriteJSON(ackMessage{LocalID: op.LocalID, AckInfo: AckInfo{Seq: seq}})
			continue
		}

		ack, err := doc.Submit(init.ClientID, op).Wait(active.Context())
		if err != nil {
			active.WriteJSON(ackMessage{LocalID: op.LocalID, Err: err.Error()})
			continue
		}

		pending.Put(op.LocalID, ack.Seq)
		active.WriteJSON(ackMessage{LocalID: op.LocalID, AckInfo: ack})
	}
}

type ackMessage struct {
	LocalID int    `json:"id"`
	AckInfo        `json:"ack,omitempty"`
	Err     string `json:"err,omitempty"`
}
