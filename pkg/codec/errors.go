// Package codec re-exports the decode error types for callers outside this
// module.
package codec

import "firestige.xyz/pktbuilder/internal/core"

type (
	DecodeError = core.DecodeError
	Kind        = core.Kind
	RawPacket   = core.RawPacket
)

const (
	KindTruncated       = core.KindTruncated
	KindInvalidField    = core.KindInvalidField
	KindUnknownOption   = core.KindUnknownOption
	KindTruncatedOption = core.KindTruncatedOption
	KindFieldOverflow   = core.KindFieldOverflow
)

const (
	LayerEthernet = core.LayerEthernet
	LayerIPv4     = core.LayerIPv4
	LayerIPv6     = core.LayerIPv6
	LayerTCP      = core.LayerTCP
)

var (
	ErrPacketTooShort  = core.ErrPacketTooShort
	ErrInvalidField    = core.ErrInvalidField
	ErrUnknownOption   = core.ErrUnknownOption
	ErrTruncatedOption = core.ErrTruncatedOption
	ErrFieldOverflow   = core.ErrFieldOverflow
)
