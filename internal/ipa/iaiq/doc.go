// Package iaiq defines the boundary to the image-quality tuning engine.
//
// Responsibilities: the engine-native statistics input and tuning decision
// structures, the Engine interface any conforming tuning engine implements,
// engine error codes, and the BinaryData calibration blob loader.
//
// Dependency rule: iaiq is a leaf. Adapters (internal/ipa/stats), encoders
// (internal/ipa/params), engine implementations (internal/ipa/engine) and the
// session orchestrator (internal/ipa/aiq) all depend on it; it depends on
// none of them.
package iaiq
