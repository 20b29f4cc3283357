package thermor

// Packet is one complete 64-bit transmission of the weather station.
// The receiver hands packets to the consumer by value, so the consumer
// owns its copy and the receiver is free to start on the next frame.
type Packet struct {
	Data [PacketBytes]byte
}

// StationID is the identifier of the transmitting station (byte 0).
func (p Packet) StationID() byte {
	return p.Data[0]
}

// TypeCode is the packet type, the low nibble of byte 1.
func (p Packet) TypeCode() byte {
	return p.Data[1] & 0x0f
}

// Payload returns the six type specific bytes. The meaning of the
// payload is owned by the consumer, see pkg/weather.
func (p Packet) Payload() []byte {
	return p.Data[2:]
}
