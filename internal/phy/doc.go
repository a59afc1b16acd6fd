// Package phy defines the closed sets of physical-layer schemes a cognitive
// engine may select: modulation, CRC and forward error correction, together
// with the ordered ladders adaptation actions walk along.
package phy
