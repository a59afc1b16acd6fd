package harness

import "math/bits"

// PRBS is a maximal-length linear feedback shift register producing the
// pseudo-random payload both ends of a link agree on.
type PRBS struct {
	state uint32
	taps  uint32
	mask  uint32
}

// NewPRBS returns the degree-9 sequence generator (x^9 + x^4 + 1) in its
// initial state.
func NewPRBS() *PRBS {
	return &PRBS{state: 1, taps: 0x0211, mask: 1<<9 - 1}
}

func (p *PRBS) advance() uint32 {
	b := uint32(bits.OnesCount32(p.state&p.taps) & 1)
	p.state = ((p.state << 1) | b) & p.mask
	return b
}

// Byte returns the next 8 bits, most significant first.
func (p *PRBS) Byte() byte {
	var v byte
	for i := 0; i < 8; i++ {
		v = v<<1 | byte(p.advance())
	}
	return v
}

// Fill overwrites buf with the next len(buf) bytes of the sequence.
func (p *PRBS) Fill(buf []byte) {
	for i := range buf {
		buf[i] = p.Byte()
	}
}
