// Package wire defines the CBOR wire format of the remote bus bridge.
//
// A bridge client drives the SoC's single bus master from the host. Every
// exchange is one request answered by exactly one response carrying the
// same message ID.
//
// # CBOR Integer Keys
//
// All maps use integer keys for compactness. The key assignments are
// documented on each message type.
//
// # Addresses
//
// Addresses on the wire are 32-bit byte addresses and must be word aligned.
// Byte and half-word accesses are expressed with the Select lane mask.
package wire
