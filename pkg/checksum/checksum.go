// Package checksum implements the Internet checksum (RFC 1071) shared by the
// IPv4 header and the TCP segment.
package checksum

import "encoding/binary"

// Size is the size of a checksum field in bytes.
const Size = 2

// Sum adds b to initial as a series of big-endian 16-bit words and returns the
// unfolded running sum. A trailing odd byte is treated as the high byte of a
// zero-padded word, so every chunk but the last one chained through Sum must
// have even length.
func Sum(initial uint32, b []byte) uint32 {
	s := uint64(initial)
	n := len(b) &^ 1
	for i := 0; i < n; i += 2 {
		s += uint64(binary.BigEndian.Uint16(b[i:]))
	}
	if len(b)&1 != 0 {
		s += uint64(b[len(b)-1]) << 8
	}
	for s>>32 != 0 {
		s = (s & 0xffffffff) + (s >> 32)
	}
	return uint32(s)
}

// Fold adds the carries above bit 15 back into the low 16 bits until none
// remain.
func Fold(sum uint32) uint16 {
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return uint16(sum)
}

// Complete folds sum and returns its one's complement, the value written into
// a checksum field.
func Complete(sum uint32) uint16 {
	return ^Fold(sum)
}

// Checksum returns the Internet checksum of b. Empty and all-zero input yield
// 0xFFFF, never 0x0000.
func Checksum(b []byte) uint16 {
	return Complete(Sum(0, b))
}

// Put writes xsum into the first two bytes of b in network byte order.
func Put(b []byte, xsum uint16) {
	binary.BigEndian.PutUint16(b, xsum)
}

// PseudoHeaderSum returns the partial sum of a transport pseudo-header: the
// two network addresses (4 bytes each for IPv4, 16 for IPv6), the upper-layer
// protocol number and the segment length. The length is added as two 16-bit
// words, which equals the RFC 793 16-bit field for IPv4 and the RFC 8200
// 32-bit field for IPv6.
func PseudoHeaderSum(src, dst []byte, protocol uint8, length uint32) uint32 {
	s := Sum(0, src)
	s = Sum(s, dst)
	s += uint32(protocol)
	s += length >> 16
	s += length & 0xffff
	return s
}
