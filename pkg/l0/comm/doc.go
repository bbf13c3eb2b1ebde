// Package comm implements the L0 link protocol engine.
package comm

// L0 frames are exchanged between the robot firmware and a host over a
// plain byte stream (usually a UART). There is no out-of-band framing, so
// every frame carries its own markers and checksum:
//
//	[A5][5A][type][seq][len][payload ...][sumHi][sumLo]
//
// The checksum covers type, seq, len and payload. The sequence number is
// stamped by the sender and only informational on the receiving side.
//
// Received bytes are pushed into a Ring by the link's receive path and
// consumed by the Parser from the foreground loop. Header bytes are
// committed as they are consumed. Payload and checksum bytes are read
// ahead through a tentative cursor and committed only when the checksum
// matches; on mismatch the cursor is rewound to the committed head and the
// bytes are examined again, so a corrupted frame never swallows the start
// of the next one.
//
// Outbound frames go through a single transmit buffer drained one byte at
// a time by the link. Only one frame is in flight at any time.
