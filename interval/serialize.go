package interval

import (
	"fmt"

	"github.com/samthor/ivrope/reftype"
	"github.com/samthor/ivrope/segtree"
)

// SerializedIntervalDelta is the wire form: either a full serialization
// (both endpoints populated) or a delta carrying only properties plus
// whichever endpoints actually changed.
type SerializedIntervalDelta struct {
	Start          any            `json:"start,omitempty"`
	End            any            `json:"end,omitempty"`
	StartSide      string         `json:"startSide,omitempty"`
	EndSide        string         `json:"endSide,omitempty"`
	IntervalType   string         `json:"intervalType"`
	Stickiness     string         `json:"stickiness"`
	SequenceNumber int            `json:"sequenceNumber"`
	Properties     map[string]any `json:"properties"`
}

func positionJSON(pos reftype.Position) any {
	if pos.IsSentinel() {
		return pos.Sentinel().String()
	}
	return pos.Value()
}

// Serialize is a full serialization: SerializeDelta with both endpoints
// always populated.
func (i *Interval) Serialize() SerializedIntervalDelta {
	return i.SerializeDelta(i.properties, true)
}

// SerializeDelta builds the wire form from an explicit property set,
// optionally omitting the endpoint fields (a property-only delta).
func (i *Interval) SerializeDelta(props map[string]any, includeEndpoints bool) SerializedIntervalDelta {
	out := SerializedIntervalDelta{
		IntervalType:   i.intervalType.String(),
		Stickiness:     i.Stickiness().String(),
		SequenceNumber: i.client.GetCurrentSeq(),
		Properties:     serializedProperties(props, i.id, i.label),
	}
	if includeEndpoints {
		out.Start = positionJSON(resolvePosition(i.client, i.start))
		out.End = positionJSON(resolvePosition(i.client, i.end))
		out.StartSide = i.startSide.String()
		out.EndSide = i.endSide.String()
	}
	return out
}

func serializedProperties(props map[string]any, id, label string) map[string]any {
	out := make(map[string]any, len(props)+2)
	for k, v := range props {
		out[k] = v
	}
	out[intervalIDKey] = id
	out[referenceRangeLabelsKey] = []string{label}
	return out
}

// GetSerializedProperties performs the legacy-id synthesis: extracts the
// reserved keys from a wire properties map, synthesizing an id from the
// endpoint positions when none was carried.
func GetSerializedProperties(properties map[string]any, start, end any) (id string, labels []string, userProps map[string]any) {
	userProps = map[string]any{}
	for k, v := range properties {
		switch k {
		case intervalIDKey:
			if s, ok := v.(string); ok {
				id = s
			}
		case referenceRangeLabelsKey:
			if l, ok := v.([]string); ok {
				labels = l
			}
		default:
			userProps[k] = v
		}
	}
	if id == "" {
		id = fmt.Sprintf("legacy%v-%v", start, end)
	}
	if labels == nil {
		labels = []string{}
	}
	return id, labels, userProps
}

// Deserializer reconstructs an Interval from its wire form against a live
// client.
type Deserializer struct {
	Factory EndpointFactory
}

// Deserialize reconstructs an Interval from a wire record, synthesizing a
// legacy id when the record carries none. op carries the remote-op context
// to resolve positions against when origin is OriginOp; nil for any other
// origin (e.g. a snapshot load).
func (d Deserializer) Deserialize(rec SerializedIntervalDelta, client segtree.Client, origin Origin, op *OpInfo) (*Interval, error) {
	id, labels, userProps := GetSerializedProperties(rec.Properties, rec.Start, rec.End)
	label := ""
	if len(labels) > 0 {
		label = labels[0]
	}

	startPlace := jsonToPlace(rec.Start, rec.StartSide)
	endPlace := jsonToPlace(rec.End, rec.EndSide)

	return d.Factory.CreateInterval(label, id, startPlace, endPlace, client, intervalTypeFromString(rec.IntervalType), origin, op, false, userProps)
}

// PlaceFromJSON decodes a wire endpoint (as produced by positionJSON) plus
// its side string back into a Place, for callers that need to feed a raw
// wire endpoint into Modify without a full Deserialize.
func PlaceFromJSON(pos any, side string) *reftype.Place {
	return jsonToPlace(pos, side)
}

func jsonToPlace(pos any, side string) *reftype.Place {
	if pos == nil {
		return nil
	}
	var p reftype.Position
	switch v := pos.(type) {
	case string:
		if v == "end" {
			p = reftype.End()
		} else {
			p = reftype.Start()
		}
	case float64:
		p = reftype.At(int64(v))
	case int:
		p = reftype.At(int64(v))
	case int64:
		p = reftype.At(v)
	default:
		return nil
	}
	s := reftype.Before
	if side == "After" {
		s = reftype.After
	}
	place := reftype.NewPlace(p, s)
	return &place
}

func intervalTypeFromString(s string) reftype.IntervalType {
	switch s {
	case "Transient":
		return reftype.IntervalTransient
	case "Nest":
		return reftype.IntervalNest
	case "Simple":
		return reftype.IntervalSimple
	default:
		return reftype.IntervalSlideOnRemove
	}
}
