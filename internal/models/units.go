// ABOUTME: Unit conversions shared by scoring, packing, and rendering
// ABOUTME: All resource-space math uses GiB for memory and whole cores for CPU

package models

// GiB is the number of bytes in one gibibyte.
const GiB = 1 << 30

// BytesToGiB converts a byte count to GiB.
func BytesToGiB(b int64) float64 {
	return float64(b) / GiB
}
