package main

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/require"
)

func TestDescribeDatagramIPv4(t *testing.T) {
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IPv4(192, 168, 0, 1),
		DstIP:    net.IPv4(192, 168, 0, 2),
	}
	udp := &layers.UDP{SrcPort: 4000, DstPort: 5000}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ip, udp, gopacket.Payload("hi")))

	got := describeDatagram(buf.Bytes())
	require.Contains(t, got, "ipv4 192.168.0.1 -> 192.168.0.2 UDP")
	require.Contains(t, got, "len=30")
}

func TestDescribeDatagramOpaque(t *testing.T) {
	require.Equal(t, "opaque len=5", describeDatagram([]byte("hello")))
	require.Equal(t, "opaque len=0", describeDatagram(nil))

	// long enough for a header, but an IPv6 version nibble
	v6 := make([]byte, 40)
	v6[0] = 0x60
	require.Equal(t, "opaque len=40", describeDatagram(v6))
}
