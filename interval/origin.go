// Package interval implements the endpoint-reference model: PositionReference
// configuration via an endpoint factory, the Interval value type itself, and
// its serializer/deserializer. It consumes the segtree.Client surface but
// owns no segment storage of its own.
package interval

import "github.com/samthor/ivrope/reftype"

// Origin tags where a reference creation request came from, which governs
// which ReferenceType flags are legal and how the position is resolved.
type Origin int

const (
	OriginLocal Origin = iota
	OriginOp
	OriginSnapshot
	OriginRollback
	OriginTransient
)

// OpInfo carries the remote-op context a reference or property change is
// being created/applied under. A nil *OpInfo means "no op" (immediate local).
type OpInfo struct {
	SequenceNumber          int
	ReferenceSequenceNumber int
	ClientID                string
}

// UnassignedSequenceNumber marks a pending local change not yet sequenced.
const UnassignedSequenceNumber = -1

// UniversalSequenceNumber marks state that applies regardless of sequencing,
// used when the client isn't currently collaborating.
const UniversalSequenceNumber = 0

func sideDefault() reftype.Side { return reftype.Before }
