// Package engine provides the reference software tuning engine.
//
// It implements iaiq.Engine with deterministic, self-contained 3A
// algorithms: mean-target auto exposure metered from the luminance
// histogram, gray-world auto white balance with a CCT estimate, a gamma
// tone curve, and a contrast hill-climb autofocus. It exists so the control
// loop runs end to end without the vendor library; any conforming engine
// can replace it behind the same interface.
package engine
