package main

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// describeDatagram summarises a received datagram for the log. Anything that
// does not parse as IPv4 is reported by size only.
func describeDatagram(d []byte) string {
	var ip layers.IPv4
	if err := ip.DecodeFromBytes(d, gopacket.NilDecodeFeedback); err != nil || ip.Version != 4 {
		return fmt.Sprintf("opaque len=%d", len(d))
	}
	return fmt.Sprintf("ipv4 %s -> %s %s ttl=%d len=%d", ip.SrcIP, ip.DstIP, ip.Protocol, ip.TTL, len(d))
}
