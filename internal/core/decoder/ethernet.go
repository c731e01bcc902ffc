package decoder

import (
	"encoding/binary"

	"firestige.xyz/pktbuilder/internal/core"
	"firestige.xyz/pktbuilder/pkg/ethernet"
)

const vlanHeaderLen = 4

// decodeEthernet decodes the frame header and any 802.1Q/802.1ad tags.
// The returned header carries the innermost EtherType.
func decodeEthernet(data []byte, maxVLANs int) (ethernet.Header, []uint16, []byte, error) {
	eth, err := ethernet.ParseHeader(data)
	if err != nil {
		return ethernet.Header{}, nil, nil, err
	}

	offset := ethernet.HeaderLen
	var vlans []uint16
	for eth.EtherType == ethernet.EtherTypeVLAN || eth.EtherType == ethernet.EtherTypeQinQ {
		if maxVLANs > 0 && len(vlans) == maxVLANs {
			return eth, nil, nil, core.NewDecodeError(core.LayerEthernet, core.KindInvalidField, offset,
				"more than %d VLAN tags", maxVLANs)
		}
		if len(data) < offset+vlanHeaderLen {
			return eth, nil, nil, core.NewDecodeError(core.LayerEthernet, core.KindTruncated, len(data),
				"VLAN tag needs %d bytes", vlanHeaderLen)
		}

		// TCI: low 12 bits are the VLAN ID
		tci := binary.BigEndian.Uint16(data[offset : offset+2])
		vlans = append(vlans, tci&0x0FFF)

		eth.EtherType = ethernet.EtherType(binary.BigEndian.Uint16(data[offset+2 : offset+4]))
		offset += vlanHeaderLen
	}

	return eth, vlans, data[offset:], nil
}
