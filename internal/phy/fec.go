package phy

import (
	"fmt"
	"strings"
)

// FEC is a forward error correction scheme.
type FEC int

const (
	FECNone FEC = iota
	Hamming74
	Hamming128
	Golay2412
	SECDED2216
	SECDED3932
	SECDED7264
)

var fecNames = []string{
	FECNone:    "none",
	Hamming74:  "Hamming74",
	Hamming128: "Hamming128",
	Golay2412:  "Golay2412",
	SECDED2216: "SEC-DED2216",
	SECDED3932: "SEC-DED3932",
	SECDED7264: "SEC-DED7264",
}

// FECLadder orders the error correction schemes from none to strongest.
var FECLadder = []FEC{FECNone, Hamming74, Hamming128, Golay2412, SECDED2216, SECDED3932, SECDED7264}

// ParseFEC resolves an FEC name. Matching is case-insensitive.
func ParseFEC(s string) (FEC, error) {
	for i, name := range fecNames {
		if strings.EqualFold(name, s) {
			return FEC(i), nil
		}
	}
	return FECNone, fmt.Errorf("%w: fec %q", ErrUnknownScheme, s)
}

func (f FEC) String() string {
	if f < 0 || int(f) >= len(fecNames) {
		return fmt.Sprintf("FEC(%d)", int(f))
	}
	return fecNames[f]
}

// MarshalText implements encoding.TextMarshaler.
func (f FEC) MarshalText() ([]byte, error) {
	if f < 0 || int(f) >= len(fecNames) {
		return nil, fmt.Errorf("%w: fec %d", ErrUnknownScheme, int(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *FEC) UnmarshalText(text []byte) error {
	v, err := ParseFEC(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}
