// Command collabsyncd serves the collaborative sequence interval subsystem
// over HTTP: a websocket join endpoint per document, a JSON snapshot
// endpoint, and a read-only SSE interval-change stream.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/samthor/ivrope/collabsync"
	"github.com/samthor/ivrope/guard"
)

func main() {
	addr := flag.String("addr", ":8080", "address to listen on")
	idleShutdown := flag.Duration("idle-shutdown", 5*time.Minute, "how long a document stays loaded with zero clients")
	requireToken := flag.Bool("require-token", false, "require a provisioned token to join any document")
	token := flag.String("token", "", "the single token to provision when -require-token is set")
	flag.Parse()

	var g guard.Guard[collabsync.AuthToken, collabsync.DocID]
	if *requireToken {
		g = guard.NewGuard(context.Background(), func(ctx context.Context, key collabsync.DocID, all []collabsync.AuthToken) ([]collabsync.AuthToken, error) {
			// Every provisioned token grants access to every document; a
			// real deployment would scope tokens to specific documents.
			return all, nil
		})
		g.ProvideToken(collabsync.AuthToken(*token), nil) // never expires
	}

	server := collabsync.New(collabsync.Config{
		SessionIdleShutdown: *idleShutdown,
	}, g)

	log.Printf("collabsyncd listening on %s", *addr)
	if err := http.ListenAndServe(*addr, server.Handler()); err != nil {
		log.Fatal(err)
	}
}
