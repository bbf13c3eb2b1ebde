package bridge

// PacketReader reads encoded messages.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes encoded messages.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes encoded messages.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}
