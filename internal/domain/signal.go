package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SDPKind tags a session description.
type SDPKind int

const (
	SDPKindOffer SDPKind = iota + 1
	SDPKindAnswer
	SDPKindProvisionalAnswer
	SDPKindRollback
)

// ErrUnknownSDPKind is returned by ParseSDPKind for strings outside the four wire values.
var ErrUnknownSDPKind = errors.New("unknown sdp type")

// String returns the lowercase wire form of the kind.
func (k SDPKind) String() string {
	switch k {
	case SDPKindOffer:
		return "offer"
	case SDPKindAnswer:
		return "answer"
	case SDPKindProvisionalAnswer:
		return "pranswer"
	case SDPKindRollback:
		return "rollback"
	default:
		return fmt.Sprintf("SDPKind(%d)", int(k))
	}
}

// ParseSDPKind matches s case-insensitively against the wire values.
func ParseSDPKind(s string) (SDPKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "offer":
		return SDPKindOffer, nil
	case "answer":
		return SDPKindAnswer, nil
	case "pranswer":
		return SDPKindProvisionalAnswer, nil
	case "rollback":
		return SDPKindRollback, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownSDPKind, s)
	}
}

// SessionDescription is an offer, answer, provisional answer or rollback.
type SessionDescription struct {
	Kind SDPKind
	Body string
}

// ICECandidate is one connectivity candidate exchanged through signaling.
type ICECandidate struct {
	Candidate      string
	MediaID        string
	MediaLineIndex int
}

// SDPPayload is the JSON structure for SDP offer/answer messages.
type SDPPayload struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// ICECandidatePayload is the JSON structure for ICE candidate messages.
type ICECandidatePayload struct {
	Candidate     string `json:"candidate"`
	SDPMid        string `json:"sdpMid"`
	SDPMLineIndex int    `json:"sdpMLineIndex"`
}

// EnvelopeTag is the prefix that selects the payload type of a signaling frame.
type EnvelopeTag string

const (
	TagSDP EnvelopeTag = "sdp"
	TagICE EnvelopeTag = "ice"
)

// Envelope is a decoded signaling frame. Exactly one of Description and
// Candidate is set, matching Tag.
type Envelope struct {
	Tag         EnvelopeTag
	Description *SessionDescription
	Candidate   *ICECandidate
}

// ErrUnknownTag is returned by DecodeEnvelope for frames without a known prefix.
var ErrUnknownTag = errors.New("unknown envelope tag")

// EncodeDescription renders d as an "sdp:" frame.
func EncodeDescription(d SessionDescription) (string, error) {
	data, err := json.Marshal(SDPPayload{Type: d.Kind.String(), SDP: d.Body})
	if err != nil {
		return "", fmt.Errorf("marshal sdp payload: %w", err)
	}
	return string(TagSDP) + ":" + string(data), nil
}

// EncodeCandidate renders c as an "ice:" frame.
func EncodeCandidate(c ICECandidate) (string, error) {
	data, err := json.Marshal(ICECandidatePayload{
		Candidate:     c.Candidate,
		SDPMid:        c.MediaID,
		SDPMLineIndex: c.MediaLineIndex,
	})
	if err != nil {
		return "", fmt.Errorf("marshal ice payload: %w", err)
	}
	return string(TagICE) + ":" + string(data), nil
}

// DecodeEnvelope parses a signaling frame.
//
// Malformed JSON yields a *PayloadError. An sdp payload whose type is not one
// of the four wire values yields a *NegotiationError wrapping
// ErrUnknownSDPKind. Any other prefix yields ErrUnknownTag.
func DecodeEnvelope(text string) (Envelope, error) {
	tag, body, ok := strings.Cut(text, ":")
	if !ok {
		return Envelope{}, fmt.Errorf("%w: no prefix", ErrUnknownTag)
	}

	switch EnvelopeTag(tag) {
	case TagSDP:
		var p SDPPayload
		if err := json.Unmarshal([]byte(body), &p); err != nil {
			return Envelope{}, &PayloadError{Tag: TagSDP, Err: err}
		}
		kind, err := ParseSDPKind(p.Type)
		if err != nil {
			return Envelope{}, &NegotiationError{Op: OpParse, Err: err}
		}
		return Envelope{
			Tag:         TagSDP,
			Description: &SessionDescription{Kind: kind, Body: p.SDP},
		}, nil

	case TagICE:
		var p ICECandidatePayload
		if err := json.Unmarshal([]byte(body), &p); err != nil {
			return Envelope{}, &PayloadError{Tag: TagICE, Err: err}
		}
		return Envelope{
			Tag: TagICE,
			Candidate: &ICECandidate{
				Candidate:      p.Candidate,
				MediaID:        p.SDPMid,
				MediaLineIndex: p.SDPMLineIndex,
			},
		}, nil

	default:
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
}
