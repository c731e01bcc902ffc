package core

import "errors"

// Sentinel errors following the otus error handling pattern: callers match
// them with errors.Is, a DecodeError unwraps to exactly one of the codec ones.
var (
	// Codec errors
	ErrPacketTooShort   = errors.New("pktbuilder: packet too short")
	ErrInvalidField     = errors.New("pktbuilder: invalid header field")
	ErrUnknownOption    = errors.New("pktbuilder: unknown option type")
	ErrTruncatedOption  = errors.New("pktbuilder: truncated option")
	ErrFieldOverflow    = errors.New("pktbuilder: field value exceeds wire width")
	ErrUnsupportedProto = errors.New("pktbuilder: unsupported protocol")

	// Configuration errors
	ErrConfigInvalid   = errors.New("pktbuilder: invalid configuration")
	ErrTemplateInvalid = errors.New("pktbuilder: invalid packet template")
)
