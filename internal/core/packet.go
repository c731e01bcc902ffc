// Package core defines the raw packet record and the decode error types.
package core

import "time"

// RawPacket is one link-layer frame handed to the stack decoder, either read
// from a pcap file or parsed from hex. Data is borrowed, never copied.
type RawPacket struct {
	Data       []byte    // Raw frame data, zero-copy slice
	Timestamp  time.Time // Capture timestamp from the pcap record, zero for hex input
	CaptureLen uint32    // Captured length
	OrigLen    uint32    // Original frame length on the wire
}
