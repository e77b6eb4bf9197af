// Package slip carries datagrams over raw serial lines using the framing of
// RFC 1055 (SLIP).
//
// A serial line delivers bytes in chunks that have nothing to do with
// message boundaries. A Link restores them: outbound datagrams are
// byte-stuffed and wrapped in End bytes, inbound chunks are fed through a
// Decoder that reassembles frames split across, or packed into, any number
// of chunks. A Multiplexer owns one Link per directly connected peer and
// routes by next-hop IPv4 address.
//
// Features:
//   - Bit-exact RFC 1055 framing: End 0xC0, Esc 0xDB, EscEnd 0xDC, EscEsc 0xDD
//   - Reassembly independent of chunking, including escape pairs split
//     across chunks
//   - Malformed frames are dropped and reported, never delivered
//   - Raw Linux serial Port usable as a Transport, with PTY-based tests
//
// There is no checksum, retransmission or flow control.
//
// Example usage:
//
//	port, err := slip.Open(slip.Config{Device: "/dev/ttyUSB0", BaudRate: 115200})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	mux, err := slip.New([]slip.Peer{{Addr: "192.168.0.2", Transport: port}})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	mux.OnDatagram(slip.DatagramReceiverFunc(func(d []byte) {
//	    fmt.Printf("received %d bytes\n", len(d))
//	}))
//
//	if err := mux.Send(datagram, "192.168.0.2"); err != nil {
//	    log.Println("send failed:", err)
//	}
//
// This package does **not** support Windows.
package slip
