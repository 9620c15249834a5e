// Package region implements the SoC's named memory-region table.
//
// A [Region] is a named, byte-addressed span. The same table drives the
// hardware address decode and the software-visible region map consumed by
// the firmware linker (see package gen). A [Table] is built once and is
// immutable; building it fails if any two regions overlap.
package region
