// Package periph contains the SoC's simple bus peripherals: the LED chaser,
// a GPIO output block and word-addressed memories.
//
// Every peripheral is a [bus.Slave] with a registered single-cycle
// acknowledgment and registered read data. Peripherals are bound with
// offset addressing, so register offsets are word offsets within the
// peripheral's region.
package periph
