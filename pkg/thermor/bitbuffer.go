package thermor

const (
	// PacketBytes is the size of one transmission.
	PacketBytes = 8
	// PacketBits is the number of bits in one transmission.
	PacketBits = PacketBytes * 8
)

// BitBuffer is a fixed 64-bit buffer addressable at single bit
// granularity. Bit 0 of a byte is its most significant bit, so the bits
// of a transmission land in the buffer in the order they arrive on air.
type BitBuffer [PacketBytes]byte

// Set writes one bit at the given index (byte = index/8, offset =
// index%8, MSB first). Writes outside [0, PacketBits) are ignored.
func (b *BitBuffer) Set(index int, value bool) {
	if index < 0 || index >= PacketBits {
		return
	}

	mask := byte(0x80) >> (index % 8)
	if value {
		b[index/8] |= mask
	} else {
		b[index/8] &^= mask
	}
}

// Bit reads the bit at the given index. Out of range indexes read as false.
func (b *BitBuffer) Bit(index int) bool {
	if index < 0 || index >= PacketBits {
		return false
	}

	return b[index/8]&(0x80>>(index%8)) != 0
}
