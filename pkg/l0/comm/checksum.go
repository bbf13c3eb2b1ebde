package comm

import (
	"fmt"
	"strings"

	"github.com/sigurn/crc16"
)

// Checksum is the 16-bit frame check folded byte by byte.
// Both ends of a link must use the same Checksum; the variants
// below are distinct wire formats and never interoperate.
type Checksum interface {
	Name() string
	Init() uint16
	Update(sum uint16, p ...byte) uint16
	Complete(sum uint16) uint16
}

var (
	// CRCCCITT is CRC-16/CCITT-FALSE: poly 0x1021, init 0xFFFF, no reflection.
	CRCCCITT Checksum = newCRC("crc-ccitt", crc16.CRC16_CCITT_FALSE)
	// CRCCCITTReflected is CRC-16/MCRF4XX, which is what avr-libc's
	// _crc_ccitt_update computes.
	CRCCCITTReflected Checksum = newCRC("crc-ccitt-reflected", crc16.CRC16_MCRF4XX)
	// XOR8 xors all covered bytes into the low byte. High byte is always 0.
	XOR8 Checksum = xorChecksum{}

	checksums = []Checksum{CRCCCITT, CRCCCITTReflected, XOR8}
)

type crcChecksum struct {
	name  string
	table *crc16.Table
}

func newCRC(name string, params crc16.Params) *crcChecksum {
	return &crcChecksum{name: name, table: crc16.MakeTable(params)}
}

func (c *crcChecksum) Name() string { return c.name }
func (c *crcChecksum) Init() uint16 { return crc16.Init(c.table) }

func (c *crcChecksum) Update(sum uint16, p ...byte) uint16 {
	return crc16.Update(sum, p, c.table)
}

func (c *crcChecksum) Complete(sum uint16) uint16 {
	return crc16.Complete(sum, c.table)
}

type xorChecksum struct{}

func (xorChecksum) Name() string { return "xor" }
func (xorChecksum) Init() uint16 { return 0 }

func (xorChecksum) Update(sum uint16, p ...byte) uint16 {
	for _, b := range p {
		sum ^= uint16(b)
	}
	return sum
}

func (xorChecksum) Complete(sum uint16) uint16 { return sum & 0xff }

// ChecksumByName finds a Checksum by its Name.
func ChecksumByName(name string) (Checksum, error) {
	for _, cs := range checksums {
		if strings.EqualFold(cs.Name(), name) {
			return cs, nil
		}
	}
	return nil, fmt.Errorf("unknown checksum %q", name)
}

// Sum computes the complete checksum of p.
func Sum(cs Checksum, p []byte) uint16 {
	return cs.Complete(cs.Update(cs.Init(), p...))
}
