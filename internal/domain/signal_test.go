package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestDescriptionRoundTrip(t *testing.T) {
	kinds := []SDPKind{SDPKindOffer, SDPKindAnswer, SDPKindProvisionalAnswer, SDPKindRollback}
	body := "v=0\r\no=- 1 2 IN IP4 127.0.0.1\r\ns=\"quoted\" \\ slash\r\n"

	for _, kind := range kinds {
		t.Run(kind.String(), func(t *testing.T) {
			in := SessionDescription{Kind: kind, Body: body}
			text, err := EncodeDescription(in)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if !strings.HasPrefix(text, "sdp:") {
				t.Fatalf("expected sdp: prefix, got %q", text)
			}
			if !strings.Contains(text, `"type":"`+kind.String()+`"`) {
				t.Errorf("expected lowercase type %q in %s", kind.String(), text)
			}

			env, err := DecodeEnvelope(text)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Tag != TagSDP || env.Description == nil {
				t.Fatalf("expected sdp envelope, got %+v", env)
			}
			if *env.Description != in {
				t.Errorf("expected %+v, got %+v", in, *env.Description)
			}
		})
	}
}

func TestCandidateRoundTrip(t *testing.T) {
	candidates := []ICECandidate{
		{Candidate: "candidate:1 1 udp 2130706431 192.168.1.2 50000 typ host", MediaID: "0", MediaLineIndex: 0},
		{Candidate: "candidate:ünïcødé \"quotes\" \\ and\ttabs", MediaID: "video", MediaLineIndex: 3},
		{Candidate: "", MediaID: "", MediaLineIndex: 0},
	}

	for _, in := range candidates {
		text, err := EncodeCandidate(in)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		env, err := DecodeEnvelope(text)
		if err != nil {
			t.Fatalf("decode %q: %v", text, err)
		}
		if env.Tag != TagICE || env.Candidate == nil {
			t.Fatalf("expected ice envelope, got %+v", env)
		}
		if *env.Candidate != in {
			t.Errorf("expected %+v, got %+v", in, *env.Candidate)
		}
	}
}

func TestDecodeCandidate_MissingLineIndexDefaultsToZero(t *testing.T) {
	env, err := DecodeEnvelope(`ice:{"candidate":"candidate:abc","sdpMid":"0"}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Candidate.MediaLineIndex != 0 {
		t.Errorf("expected MediaLineIndex 0, got %d", env.Candidate.MediaLineIndex)
	}
}

func TestParseSDPKind_CaseInsensitive(t *testing.T) {
	tests := map[string]SDPKind{
		"offer":    SDPKindOffer,
		"ANSWER":   SDPKindAnswer,
		"PrAnswer": SDPKindProvisionalAnswer,
		"Rollback": SDPKindRollback,
	}
	for in, want := range tests {
		got, err := ParseSDPKind(in)
		if err != nil {
			t.Errorf("%q: unexpected error %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("%q: expected %s, got %s", in, want, got)
		}
	}
}

func TestDecodeEnvelope_UnknownSDPKind(t *testing.T) {
	_, err := DecodeEnvelope(`sdp:{"type":"bogus","sdp":"v=0"}`)

	var negErr *NegotiationError
	if !errors.As(err, &negErr) {
		t.Fatalf("expected *NegotiationError, got %v", err)
	}
	if negErr.Op != OpParse {
		t.Errorf("expected op %s, got %s", OpParse, negErr.Op)
	}
	if !errors.Is(err, ErrUnknownSDPKind) {
		t.Errorf("expected ErrUnknownSDPKind in chain, got %v", err)
	}
}

func TestDecodeEnvelope_MalformedJSON(t *testing.T) {
	for _, text := range []string{`sdp:{"type":`, `ice:not-json`} {
		_, err := DecodeEnvelope(text)
		var payloadErr *PayloadError
		if !errors.As(err, &payloadErr) {
			t.Errorf("%q: expected *PayloadError, got %v", text, err)
		}
	}
}

func TestDecodeEnvelope_UnknownTag(t *testing.T) {
	for _, text := range []string{`bye:{}`, `no prefix at all`, `SDP:{"type":"offer","sdp":""}`} {
		_, err := DecodeEnvelope(text)
		if !errors.Is(err, ErrUnknownTag) {
			t.Errorf("%q: expected ErrUnknownTag, got %v", text, err)
		}
	}
}
