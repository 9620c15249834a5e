// Package bridge exposes the SoC's bus master to a remote host.
//
// A bridge server accepts CBOR requests over the framed transport and
// drives each one through the single bus master, so remote traffic obeys
// the same handshake, stall limit and reset wait as local traffic. The
// host-side Client matches responses to requests by message ID.
//
// Status mapping:
//
//	soc.ErrBusError  -> wire.StatusBusError
//	soc.ErrStalled   -> wire.StatusStalled
//	clock.ErrNoLock  -> wire.StatusBusy
//	invalid request  -> wire.StatusInvalid
package bridge
