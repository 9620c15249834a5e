// Package bus defines the signal-level data model of the shared SoC bus.
//
// The bus is a single-master, classic-cycle Wishbone-style bus: 32-bit data,
// word-addressed, with a four-lane byte select. A transaction is split into
// the signals driven by the master ([Signals]) and the signals driven back by
// the selected slave ([Response]). [Transaction] pairs the two for tracing and
// for tests.
//
// # Handshake
//
// The master raises Cycle and Strobe and holds all other signals stable until
// it samples Ack (or Err) on a rising edge. A slave may only drive Ack while
// its own decoded Strobe is asserted. Dropping Cycle before Ack aborts the
// transaction.
//
// # Addressing
//
// Addresses on the bus are word addresses. Memory regions and firmware use
// byte addresses; [ByteAddress] and [WordAddress] convert between the two.
package bus
