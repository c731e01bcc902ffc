package codec

import (
	"errors"
	"testing"

	"firestige.xyz/pktbuilder/internal/core"
	"firestige.xyz/pktbuilder/pkg/ipv4"
	"firestige.xyz/pktbuilder/pkg/tcp"
)

// Test that re-exported types match core types
func TestTypeAliases(t *testing.T) {
	t.Run("DecodeError", func(t *testing.T) {
		var de *DecodeError = core.NewDecodeError(LayerTCP, KindTruncated, 3, "short")

		var coreErr *core.DecodeError = de
		if coreErr.Layer != core.LayerTCP {
			t.Errorf("expected layer %q, got %q", core.LayerTCP, coreErr.Layer)
		}
	})

	t.Run("RawPacket", func(t *testing.T) {
		var raw RawPacket
		raw.Data = []byte{0x01, 0x02}

		var coreRaw core.RawPacket = raw
		if len(coreRaw.Data) != 2 {
			t.Errorf("expected Data length 2, got %d", len(coreRaw.Data))
		}
	})
}

func TestSentinelsFromCodecs(t *testing.T) {
	_, err := ipv4.ParseHeader([]byte{0x45})
	if !errors.Is(err, ErrPacketTooShort) {
		t.Errorf("expected ErrPacketTooShort, got %v", err)
	}

	_, err = tcp.ParseOptions([]byte{9})
	if !errors.Is(err, ErrUnknownOption) {
		t.Errorf("expected ErrUnknownOption, got %v", err)
	}

	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %T", err)
	}
	if de.Kind != KindUnknownOption {
		t.Errorf("expected kind %v, got %v", KindUnknownOption, de.Kind)
	}
}
