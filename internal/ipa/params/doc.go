// Package params owns the firmware-native ISP parameter buffer.
//
// Responsibilities: the fixed-size, versioned, little-endian parameter
// layout applied by the ISP to a future frame, and the deterministic encoder
// from an engine tuning decision into that layout.
//
// Dependency rule: params depends on iaiq only.
package params
