// Package collabsync is the real-time transport around the interval core: it
// sequences submitted ops against a per-document segtree.Client/interval
// collection, broadcasts them to every connected client, and acks the
// submitter. One websocket connection serves one client for one document.
package collabsync

import (
	"time"

	"github.com/samthor/ivrope/call"
	"github.com/samthor/ivrope/interval"
)

// DocID names a document. Documents are created lazily on first join and
// torn down after SessionIdleShutdown once every client has disconnected.
type DocID string

// AuthToken is an opaque credential presented to join a document, checked
// against guard.Guard before a session is admitted.
type AuthToken string

// OpKind names the operation a ClientOp carries.
type OpKind string

const (
	OpInsertText       OpKind = "insert"
	OpRemoveRange      OpKind = "remove"
	OpCreateInterval   OpKind = "create"
	OpModifyInterval   OpKind = "modify"
	OpChangeProperties OpKind = "props"
)

// ClientOp is the wire shape of a single submitted operation. Only the
// fields relevant to Kind are populated; the interval fields reuse
// interval.SerializedIntervalDelta directly rather than inventing a second
// endpoint encoding.
type ClientOp struct {
	Kind    OpKind `json:"k"`
	LocalID int    `json:"id"`

	Pos  int    `json:"pos,omitempty"`
	End  int    `json:"end,omitempty"`
	Text string `json:"text,omitempty"`

	IntervalID string                            `json:"ivId,omitempty"`
	Interval   *interval.SerializedIntervalDelta `json:"iv,omitempty"`
	Properties map[string]any                    `json:"props,omitempty"`
}

// AckInfo is handed back to a submitter once its op has been sequenced.
type AckInfo struct {
	Seq    int `json:"seq"`
	RefSeq int `json:"refSeq"`
}

// Broadcast is pushed to every session watching a document once an op is
// sequenced, including the session that submitted it, which receives it
// unchanged and can match it to its own op by LocalID.
type Broadcast struct {
	Seq      int    `json:"seq"`
	RefSeq   int    `json:"refSeq"`
	ClientID string `json:"client"`
	LocalID  int    `json:"id,omitempty"`
	Op       ClientOp `json:"op"`
}

// Snapshot is the JSON form served for a fresh join: the full text plus
// every live interval, serialized.
type Snapshot struct {
	Seq       int                                `json:"seq"`
	Text      string                             `json:"text"`
	Intervals []interval.SerializedIntervalDelta `json:"intervals"`
}

// Config controls a Server's document lifecycle and admission policy.
type Config struct {
	// SessionIdleShutdown is how long a document stays alive with zero
	// connected clients before it is torn down.
	SessionIdleShutdown time.Duration

	// CallLimit/PacketLimit bound each session's op/packet rate, applied by
	// the underlying call.Handler.
	CallLimit   *call.LimitConfig
	PacketLimit *call.LimitConfig

	// SkipOriginVerify disables websocket origin checking, for local dev.
	SkipOriginVerify bool
}
