// Package accel attaches a fixed-function compute core to the SoC bus.
//
// The core is opaque: it is reached only through its pin contract, the
// [Core] interface, so alternative cores can sit behind the same [Adapter]
// without touching the decode logic. The adapter's only logic is a
// second-level address recognition on a high-order byte of the bus address,
// the conversion of the bus word address into the core's native byte
// address, and a 1:1 renaming of the remaining signals. It adds no
// buffering; acknowledgment timing belongs to the core.
//
// [RegisterCore] is a reference core with the ETPU's register banks
// (weights, input stream, readout) used to exercise the contract.
package accel
