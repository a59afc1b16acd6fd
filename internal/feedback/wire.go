package feedback

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/cognitive-radio/crts/pkg/models"
)

// RecordSize is the length of an encoded FeedbackRecord.
const RecordSize = 32

// ErrShortRecord is returned when decoding fewer than RecordSize bytes.
var ErrShortRecord = errors.New("feedback record too short")

// MarshalRecord encodes rec in the fixed little-endian layout:
// header_valid u8, payload_valid u8, reserved u16, payload_len u32,
// byte_errors u32, bit_errors u32, iteration u32, evm f32, rssi f32, cfo f32.
func MarshalRecord(rec models.FeedbackRecord) []byte {
	b := make([]byte, RecordSize)
	if rec.HeaderValid {
		b[0] = 1
	}
	if rec.PayloadValid {
		b[1] = 1
	}
	le := binary.LittleEndian
	le.PutUint32(b[4:], rec.PayloadLen)
	le.PutUint32(b[8:], rec.PayloadByteErrors)
	le.PutUint32(b[12:], rec.PayloadBitErrors)
	le.PutUint32(b[16:], rec.Iteration)
	le.PutUint32(b[20:], math.Float32bits(rec.EVM))
	le.PutUint32(b[24:], math.Float32bits(rec.RSSI))
	le.PutUint32(b[28:], math.Float32bits(rec.CFO))
	return b
}

// UnmarshalRecord decodes the layout written by MarshalRecord.
func UnmarshalRecord(b []byte) (models.FeedbackRecord, error) {
	if len(b) < RecordSize {
		return models.FeedbackRecord{}, fmt.Errorf("%w: %d bytes", ErrShortRecord, len(b))
	}
	le := binary.LittleEndian
	return models.FeedbackRecord{
		HeaderValid:       b[0] != 0,
		PayloadValid:      b[1] != 0,
		PayloadLen:        le.Uint32(b[4:]),
		PayloadByteErrors: le.Uint32(b[8:]),
		PayloadBitErrors:  le.Uint32(b[12:]),
		Iteration:         le.Uint32(b[16:]),
		EVM:               math.Float32frombits(le.Uint32(b[20:])),
		RSSI:              math.Float32frombits(le.Uint32(b[24:])),
		CFO:               math.Float32frombits(le.Uint32(b[28:])),
	}, nil
}
