package decoder

import (
	"fmt"

	"github.com/etpu-project/etpu-go/pkg/bus"
	"github.com/etpu-project/etpu-go/pkg/region"
)

// AddressMode selects what address a bound slave receives.
type AddressMode uint8

const (
	// ModeOffset forwards the word offset within the region.
	ModeOffset AddressMode = iota

	// ModeFull forwards the master's address untouched; the slave does its
	// own second-level decode.
	ModeFull
)

// String returns the mode name used in config files.
func (m AddressMode) String() string {
	switch m {
	case ModeOffset:
		return "offset"
	case ModeFull:
		return "full"
	default:
		return "unknown"
	}
}

// ParseAddressMode parses "offset" or "full".
func ParseAddressMode(s string) (AddressMode, error) {
	switch s {
	case "", "offset":
		return ModeOffset, nil
	case "full":
		return ModeFull, nil
	default:
		return 0, fmt.Errorf("unknown address mode %q", s)
	}
}

// Binding associates a region with the slave that serves it. Bindings are
// values with unexported fields; they cannot be changed after creation.
type Binding struct {
	region region.Region
	slave  bus.Slave
	mode   AddressMode
}

// NewBinding binds slave to r.
func NewBinding(r region.Region, slave bus.Slave, mode AddressMode) Binding {
	return Binding{region: r, slave: slave, mode: mode}
}

// Region returns the bound region.
func (b Binding) Region() region.Region {
	return b.region
}

// Slave returns the bound slave.
func (b Binding) Slave() bus.Slave {
	return b.slave
}

// Mode returns the address mode.
func (b Binding) Mode() AddressMode {
	return b.mode
}

// Name returns the region name.
func (b Binding) Name() string {
	return b.region.Name
}

// Matches reports whether the word address falls in the bound region.
func (b Binding) Matches(word uint32) bool {
	return b.region.Contains(bus.ByteAddress(word))
}

// Translate returns the address the slave sees for a master word address.
func (b Binding) Translate(word uint32) uint32 {
	if b.mode == ModeFull {
		return word
	}
	return word - bus.WordAddress(b.region.Origin)
}

// String returns "name -> region".
func (b Binding) String() string {
	return fmt.Sprintf("%s (%s)", b.region, b.mode)
}
