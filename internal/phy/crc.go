package phy

import (
	"fmt"
	"strings"
)

// CRC is a payload integrity check scheme.
type CRC int

const (
	CRCNone CRC = iota
	Checksum
	CRC8
	CRC16
	CRC24
	CRC32
)

var crcNames = []string{
	CRCNone:  "none",
	Checksum: "checksum",
	CRC8:     "8",
	CRC16:    "16",
	CRC24:    "24",
	CRC32:    "32",
}

// ParseCRC resolves a CRC name ("none", "checksum", "8", "16", "24", "32").
// A "crc" prefix is accepted, so "CRC32" is equivalent to "32".
func ParseCRC(s string) (CRC, error) {
	trimmed := s
	if len(trimmed) > 3 && strings.EqualFold(trimmed[:3], "crc") {
		trimmed = trimmed[3:]
	}
	for i, name := range crcNames {
		if strings.EqualFold(name, trimmed) {
			return CRC(i), nil
		}
	}
	return CRCNone, fmt.Errorf("%w: crc %q", ErrUnknownScheme, s)
}

func (c CRC) String() string {
	if c < 0 || int(c) >= len(crcNames) {
		return fmt.Sprintf("CRC(%d)", int(c))
	}
	return crcNames[c]
}

// MarshalText implements encoding.TextMarshaler.
func (c CRC) MarshalText() ([]byte, error) {
	if c < 0 || int(c) >= len(crcNames) {
		return nil, fmt.Errorf("%w: crc %d", ErrUnknownScheme, int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *CRC) UnmarshalText(text []byte) error {
	v, err := ParseCRC(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
