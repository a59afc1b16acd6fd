package utils

import (
	"math"
)

// Round rounds a float64 to the specified number of decimal places
func Round(value float64, decimals int) float64 {
	multiplier := math.Pow(10, float64(decimals))
	return math.Round(value*multiplier) / multiplier
}

// AmplitudeFromDB converts a decibel value to a linear amplitude factor.
func AmplitudeFromDB(db float64) float64 {
	return math.Pow(10, db/20)
}

// PowerToDB converts a linear power ratio to decibels.
func PowerToDB(p float64) float64 {
	return 10 * math.Log10(p)
}
