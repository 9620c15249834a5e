// Package gen exports the software-visible region table.
//
// Firmware sees the SoC through generated artifacts: a C header with
// NAME_BASE/NAME_SIZE macros, the MEMORY block of a linker script, a csv
// row per region and a Go constants file for host tooling. All output is
// deterministic for a given table.
package gen
