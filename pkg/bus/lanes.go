package bus

// LaneMask expands a Select mask into a 32-bit data mask.
func LaneMask(sel uint8) uint32 {
	var m uint32
	for lane := 0; lane < Lanes; lane++ {
		if sel&(1<<lane) != 0 {
			m |= 0xFF << (8 * lane)
		}
	}
	return m
}

// MergeLanes returns old with the lanes enabled in sel replaced by data.
func MergeLanes(old, data uint32, sel uint8) uint32 {
	m := LaneMask(sel)
	return old&^m | data&m
}

// SelectFor returns the Select mask for an access of size bytes at the
// given byte offset within a word. Sizes of 1, 2 and 4 are supported;
// anything else selects no lanes.
func SelectFor(byteAddr uint64, size int) uint8 {
	off := uint(byteAddr & (WordSize - 1))
	switch size {
	case 1:
		return 1 << off
	case 2:
		if off > 2 {
			return 0
		}
		return 0x3 << off
	case 4:
		if off != 0 {
			return 0
		}
		return SelectAll
	default:
		return 0
	}
}
