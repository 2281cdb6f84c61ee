package collabsync

import (
	"context"
	"fmt"
	"net/http"

	"github.com/samthor/ivrope/call"
	"github.com/samthor/ivrope/guard"
	"github.com/samthor/ivrope/h2"
	"github.com/samthor/ivrope/sessionholder"
	"github.com/samthor/ivrope/sse"
	ivtime "github.com/samthor/ivrope/time"
	"github.com/samthor/ivrope/wrap"
)

// Server owns every document's lifecycle and serves the join/watch/snapshot
// HTTP surface.
type Server struct {
	config Config
	guard  guard.Guard[AuthToken, DocID]
	holder sessionholder.Holder[DocID, *Document]
}

// New builds a Server. Pass a nil guard to admit every join unconditionally.
func New(config Config, g guard.Guard[AuthToken, DocID]) *Server {
	s := &Server{config: config, guard: g}
	s.holder = sessionholder.New(sessionholder.Config[DocID, *Document]{
		Create: func(ctx context.Context, cancel context.CancelCauseFunc, key DocID) (*Document, error) {
			return newDocument(key), nil
		},
		Destroy: func(ctx context.Context, key DocID, inst *Document) error {
			return nil
		},
		ShutdownDelay: ivtime.DurationRatio(config.SessionIdleShutdown, 0.1),
	})
	return s
}

// Handler returns the HTTP handler serving /ws, /watch/, and /doc/,
// wrapped for h2c so it can serve unencrypted HTTP/2.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/ws", &call.Handler[Init]{
		CallHandler:      &handler{server: s},
		SkipOriginVerify: s.config.SkipOriginVerify,
		CallLimit:        s.config.CallLimit,
		PacketLimit:      s.config.PacketLimit,
	})

	mux.HandleFunc("/doc/", wrap.Http(func(w http.ResponseWriter, r *http.Request) any {
		docID := DocID(r.URL.Path[len("/doc/"):])
		if docID == "" {
			return http.StatusNotFound
		}
		doc, done, err := s.holder.For(r.Context(), docID)
		if err != nil {
			return err
		}
		select {
		case <-done:
		default:
		}
		return doc.Snapshot()
	}))

	mux.HandleFunc("/watch/", func(w http.ResponseWriter, r *http.Request) {
		docID := DocID(r.URL.Path[len("/watch/"):])
		if docID == "" {
			http.NotFound(w, r)
			return
		}
		doc, _, err := s.holder.For(r.Context(), docID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}

		sse.SetHeaders(w.Header())
		w.WriteHeader(http.StatusOK)

		listener := doc.Changes().Watch(r.Context())
		for {
			ev, ok := listener.Next()
			if !ok {
				return
			}
			sse.Write(w, sse.Message{
				Event: fmt.Sprint(ev.Kind),
				Data:  ev.Interval.Serialize(),
				JSON:  true,
			})
		}
	})

	return h2.Handler(mux)
}
