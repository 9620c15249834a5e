// Package clock models the SoC's clock/reset generator (CRG).
//
// The CRG derives a single synchronous clock domain from an external
// reference oscillator through a PLL and produces a reset that is asserted
// while the external reset pin, the internal soft-reset request or a missing
// PLL lock demands it. Reset assertion is immediate; release is
// resynchronized to the derived clock through a [ResetSynchronizer] so that
// downstream logic always leaves reset on a clean edge.
//
// The model is cycle based: one call to [CRG.Tick] is one rising edge of the
// derived clock. While the reference is absent the PLL never locks and the
// domain stays in reset indefinitely; there is no partial-operation mode.
//
// The CRG also drives the companion-device hold pin (the ESP32 GPIO0 strap
// on the ULX3S board) constantly high, see [CRG.HoldCompanion].
package clock
