package feedback

import "encoding/binary"

// HeaderLen is the size of the user header carried by every frame.
const HeaderLen = 8

// FrameHeader identifies a frame: which engine and scenario sent it and its
// sequence number within the test.
type FrameHeader struct {
	Engine   int
	Scenario int
	Frame    uint32
}

// Encode lays the header out as engine+1, scenario+1, big-endian frame
// number, and two zero bytes.
func (h FrameHeader) Encode() [HeaderLen]byte {
	var b [HeaderLen]byte
	b[0] = byte(h.Engine + 1)
	b[1] = byte(h.Scenario + 1)
	binary.BigEndian.PutUint32(b[2:6], h.Frame)
	return b
}

// DecodeHeader reverses Encode.
func DecodeHeader(b [HeaderLen]byte) FrameHeader {
	return FrameHeader{
		Engine:   int(b[0]) - 1,
		Scenario: int(b[1]) - 1,
		Frame:    binary.BigEndian.Uint32(b[2:6]),
	}
}
