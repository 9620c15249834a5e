// Package transport carries bridge messages between a host and the SoC
// model.
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│      CBOR Messages (wire)      │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (4B)   │
//	├────────────────────────────────┤
//	│             TCP                │
//	└────────────────────────────────┘
//
// Every frame is a 4-byte big-endian length followed by the payload. The
// bridge runs on a trusted link (a lab host next to the board), so the
// transport carries no authentication.
package transport
