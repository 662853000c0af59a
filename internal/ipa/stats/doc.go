// Package stats owns the hardware-native 3A statistics frame format.
//
// Responsibilities: the little-endian wire layout the ISP emits per captured
// frame (header, luminance histogram, white-balance region grid, focus
// filter section), validation and parsing of raw buffers, and the adapter
// that converts a parsed frame into the engine-native iaiq.Statistics input.
//
// Dependency rule: stats depends on iaiq only.
package stats
