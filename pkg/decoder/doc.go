// Package decoder implements the single-master address decoder and response
// multiplexer of the SoC bus.
//
// A [Decoder] holds an immutable list of [Binding] values, each pairing a
// memory region with a bus slave. Decoding is purely combinational: for the
// master's current signals exactly one binding (or none) is selected, that
// slave receives the master's signals unchanged apart from address
// translation, and every other slave sees [bus.Idle]. The selected slave's
// acknowledgment and read data are returned to the master in the same cycle.
//
// Addresses that no binding claims are handled by the configured default
// policy: [PolicyStall] leaves the master waiting forever (the hazard of the
// original fabric), [PolicyError] answers with an error beat carrying
// [bus.UnmappedSentinel].
package decoder
