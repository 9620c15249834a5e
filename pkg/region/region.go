package region

import (
	"errors"
	"fmt"
	"strings"

	"github.com/etpu-project/etpu-go/pkg/bus"
)

// MaxAddress is one past the highest byte address of the 32-bit bus.
const MaxAddress uint64 = 1 << 32

// Composition errors.
var (
	ErrOverlap       = errors.New("region overlap")
	ErrDuplicateName = errors.New("duplicate region name")
	ErrUnaligned     = errors.New("region not word aligned")
	ErrEmpty         = errors.New("region length is zero")
	ErrOutOfRange    = errors.New("region exceeds address space")
	ErrInvalidName   = errors.New("invalid region name")
	ErrNotFound      = errors.New("region not found")
)

// Type tells the software toolchain how a region may be accessed. It does
// not influence the hardware decode.
type Type uint8

const (
	// TypeCached is ordinary cacheable memory.
	TypeCached Type = iota
	// TypeIO is non-cacheable peripheral space.
	TypeIO
	// TypeReserved is claimed but not backed by a slave.
	TypeReserved
)

// String returns the type name used in config files and generated tables.
func (t Type) String() string {
	switch t {
	case TypeCached:
		return "cached"
	case TypeIO:
		return "io"
	case TypeReserved:
		return "reserved"
	default:
		return "unknown"
	}
}

// ParseType parses a region type name.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "", "cached":
		return TypeCached, nil
	case "io", "uncached":
		return TypeIO, nil
	case "reserved":
		return TypeReserved, nil
	default:
		return 0, fmt.Errorf("unknown region type %q", s)
	}
}

// Mode is the access mode advertised to software.
type Mode uint8

const (
	ModeRW Mode = iota
	ModeRO
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeRO {
		return "r"
	}
	return "rw"
}

// ParseMode parses "rw" or "r".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "rw":
		return ModeRW, nil
	case "r", "ro":
		return ModeRO, nil
	default:
		return 0, fmt.Errorf("unknown region mode %q", s)
	}
}

// Region is a named span of the byte address space.
type Region struct {
	Name   string
	Origin uint64
	Length uint64
	Type   Type
	Mode   Mode

	// Linker requests the region in the generated linker script even when
	// it is not cacheable memory.
	Linker bool
}

// End returns one past the last byte of the region.
func (r Region) End() uint64 {
	return r.Origin + r.Length
}

// Contains reports whether the byte address lies inside the region.
func (r Region) Contains(byteAddr uint64) bool {
	return byteAddr >= r.Origin && byteAddr < r.End()
}

// Overlaps reports whether two regions share any byte.
func (r Region) Overlaps(o Region) bool {
	return r.Origin < o.End() && o.Origin < r.End()
}

// Validate checks the region in isolation.
func (r Region) Validate() error {
	if !validName(r.Name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, r.Name)
	}
	if r.Length == 0 {
		return fmt.Errorf("%w: %s", ErrEmpty, r.Name)
	}
	if !bus.Aligned(r.Origin) || !bus.Aligned(r.Length) {
		return fmt.Errorf("%w: %s origin=%#x length=%#x", ErrUnaligned, r.Name, r.Origin, r.Length)
	}
	if r.Origin >= MaxAddress || r.Length > MaxAddress-r.Origin {
		return fmt.Errorf("%w: %s [%#x, %#x)", ErrOutOfRange, r.Name, r.Origin, r.End())
	}
	return nil
}

// String returns "name [origin, end) type".
func (r Region) String() string {
	return fmt.Sprintf("%s [%#010x, %#010x) %s", r.Name, r.Origin, r.End(), r.Type)
}

// validName accepts identifiers usable as C macro and linker names.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, c := range name {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
