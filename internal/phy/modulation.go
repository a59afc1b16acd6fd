package phy

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownScheme is returned when a scheme identifier is not recognised.
var ErrUnknownScheme = errors.New("unknown scheme")

// Modulation is a digital modulation scheme.
type Modulation int

const (
	ModUnknown Modulation = iota
	BPSK
	QPSK
	PSK8
	PSK16
	PSK32
	PSK64
	PSK128
	OOK
	QAM8
	QAM16
	QAM32
	QAM64
	BASK
	ASK4
	ASK8
	ASK16
	ASK32
	ASK64
	ASK128
)

type modInfo struct {
	name string
	bps  int
}

var modTable = map[Modulation]modInfo{
	BPSK:   {"BPSK", 1},
	QPSK:   {"QPSK", 2},
	PSK8:   {"8PSK", 3},
	PSK16:  {"16PSK", 4},
	PSK32:  {"32PSK", 5},
	PSK64:  {"64PSK", 6},
	PSK128: {"128PSK", 7},
	OOK:    {"OOK", 1},
	QAM8:   {"8QAM", 3},
	QAM16:  {"16QAM", 4},
	QAM32:  {"32QAM", 5},
	QAM64:  {"64QAM", 6},
	BASK:   {"BASK", 1},
	ASK4:   {"4ASK", 2},
	ASK8:   {"8ASK", 3},
	ASK16:  {"16ASK", 4},
	ASK32:  {"32ASK", 5},
	ASK64:  {"64ASK", 6},
	ASK128: {"128ASK", 7},
}

// PSKLadder orders the phase-shift keying schemes by increasing order.
var PSKLadder = []Modulation{BPSK, QPSK, PSK8, PSK16, PSK32, PSK64, PSK128}

// ASKLadder orders the amplitude-shift keying schemes by increasing order.
var ASKLadder = []Modulation{BASK, ASK4, ASK8, ASK16, ASK32, ASK64, ASK128}

// ParseModulation resolves a modulation name such as "QPSK" or "16QAM".
// Matching is case-insensitive.
func ParseModulation(s string) (Modulation, error) {
	for m, info := range modTable {
		if strings.EqualFold(info.name, s) {
			return m, nil
		}
	}
	return ModUnknown, fmt.Errorf("%w: modulation %q", ErrUnknownScheme, s)
}

// BitsPerSymbol returns the number of bits carried by one symbol, or 0 for
// ModUnknown.
func (m Modulation) BitsPerSymbol() int {
	return modTable[m].bps
}

func (m Modulation) String() string {
	if info, ok := modTable[m]; ok {
		return info.name
	}
	return fmt.Sprintf("Modulation(%d)", int(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m Modulation) MarshalText() ([]byte, error) {
	if _, ok := modTable[m]; !ok {
		return nil, fmt.Errorf("%w: modulation %d", ErrUnknownScheme, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Modulation) UnmarshalText(text []byte) error {
	v, err := ParseModulation(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
