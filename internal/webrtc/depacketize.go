package webrtc

// H264Depacketizer extracts NAL units from RTP H264 payloads.
// It maintains instance state for FU-A fragment reassembly,
// preventing corruption when multiple streams are active.
type H264Depacketizer struct {
	fuaBuf     []byte
	fuaActive  bool
	lastSeq    uint16
	hasLastSeq bool
}

// NewH264Depacketizer creates a new depacketizer with its own reassembly buffer.
func NewH264Depacketizer() *H264Depacketizer {
	return &H264Depacketizer{}
}

// Depacketize extracts NAL units from an RTP H264 payload.
// Handles single NAL, STAP-A, and FU-A packet types. A gap in seq while a
// FU-A chain is open drops the whole chain.
func (d *H264Depacketizer) Depacketize(seq uint16, payload []byte) [][]byte {
	gap := d.hasLastSeq && seq != d.lastSeq+1
	d.lastSeq = seq
	d.hasLastSeq = true

	if len(payload) < 1 {
		return nil
	}

	naluType := payload[0] & 0x1f

	switch {
	case naluType >= 1 && naluType <= 23:
		d.resetFUA()
		return [][]byte{payload}

	case naluType == 24:
		d.resetFUA()
		return d.depacketizeSTAPA(payload)

	case naluType == 28:
		return d.depacketizeFUA(payload, gap)

	default:
		return nil
	}
}

func (d *H264Depacketizer) resetFUA() {
	d.fuaBuf = nil
	d.fuaActive = false
}

func (d *H264Depacketizer) depacketizeSTAPA(payload []byte) [][]byte {
	var nalus [][]byte
	offset := 1 // skip STAP-A header byte

	for offset+2 <= len(payload) {
		size := int(payload[offset])<<8 | int(payload[offset+1])
		offset += 2
		if size == 0 || offset+size > len(payload) {
			break
		}
		nalus = append(nalus, payload[offset:offset+size])
		offset += size
	}
	return nalus
}

func (d *H264Depacketizer) depacketizeFUA(payload []byte, gap bool) [][]byte {
	if len(payload) < 2 {
		return nil
	}

	fnri := payload[0] & 0xe0 // F + NRI bits from FU indicator
	fuHeader := payload[1]
	start := fuHeader&0x80 != 0
	end := fuHeader&0x40 != 0
	naluType := fuHeader & 0x1f

	switch {
	case start:
		// Reconstruct NAL header: F+NRI from FU indicator + type from FU header
		d.fuaBuf = []byte{fnri | naluType}
		d.fuaBuf = append(d.fuaBuf, payload[2:]...)
		d.fuaActive = true
	case !d.fuaActive:
		return nil
	case gap:
		d.resetFUA()
		return nil
	default:
		d.fuaBuf = append(d.fuaBuf, payload[2:]...)
	}

	if end {
		nalu := d.fuaBuf
		d.resetFUA()
		return [][]byte{nalu}
	}

	return nil
}
