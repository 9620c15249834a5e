// Package soc composes the clock/reset domain, the address decoder and the
// bus slaves into one system-on-chip model.
//
// A SoC is built once from a Config. Composition validates every region,
// binding, adapter predicate and frequency requirement up front; on any
// error no SoC is returned. After composition the region table and the
// bindings are immutable.
//
// The model is cycle based: [SoC.Step] applies one sys-clock cycle for the
// signals driven by the single bus master. [Master] wraps Step with the
// Wishbone classic handshake (hold cycle and strobe until ack) and
// serializes concurrent callers.
package soc
