package webrtc

import (
	"fmt"
	"strings"

	"github.com/pion/sdp/v3"
)

// VideoCodecs returns the encoding names (e.g. "H264", "VP8") offered by the
// video sections of an SDP body, in the order they appear.
func VideoCodecs(body string) ([]string, error) {
	var desc sdp.SessionDescription
	if err := desc.Unmarshal([]byte(body)); err != nil {
		return nil, fmt.Errorf("parse sdp: %w", err)
	}

	var codecs []string
	seen := make(map[string]bool)
	for _, md := range desc.MediaDescriptions {
		if md.MediaName.Media != "video" {
			continue
		}
		for _, attr := range md.Attributes {
			if attr.Key != "rtpmap" {
				continue
			}
			// rtpmap:<pt> <encoding>/<clock>[/<params>]
			_, enc, ok := strings.Cut(attr.Value, " ")
			if !ok {
				continue
			}
			name, _, _ := strings.Cut(enc, "/")
			if !seen[name] {
				seen[name] = true
				codecs = append(codecs, name)
			}
		}
	}
	return codecs, nil
}

// HasH264 reports whether codecs contains H264.
func HasH264(codecs []string) bool {
	for _, c := range codecs {
		if strings.EqualFold(c, "H264") {
			return true
		}
	}
	return false
}
