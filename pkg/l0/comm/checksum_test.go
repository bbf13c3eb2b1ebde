package comm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChecksum(t *testing.T) {
	check := []byte("123456789")
	testCases := []struct {
		cs     Checksum
		expect uint16
	}{
		{CRCCCITT, 0x29b1},
		{CRCCCITTReflected, 0x6f91},
		{XOR8, 0x31},
	}
	for _, tc := range testCases {
		t.Run(tc.cs.Name(), func(t *testing.T) {
			require.Equal(t, tc.expect, Sum(tc.cs, check))
			sum := tc.cs.Init()
			for _, b := range check {
				sum = tc.cs.Update(sum, b)
			}
			require.Equal(t, tc.expect, tc.cs.Complete(sum), "byte by byte")
		})
	}
}

func TestChecksumByName(t *testing.T) {
	for _, cs := range []Checksum{CRCCCITT, CRCCCITTReflected, XOR8} {
		found, err := ChecksumByName(cs.Name())
		require.NoError(t, err)
		require.Equal(t, cs, found)
	}
	found, err := ChecksumByName("CRC-CCITT")
	require.NoError(t, err)
	require.Equal(t, CRCCCITT, found)
	_, err = ChecksumByName("crc32")
	require.Error(t, err)
}
