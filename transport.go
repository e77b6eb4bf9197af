package slip

// Transport is a raw, unframed byte channel such as a serial line or a PTY.
//
// Send transmits bytes as given. RegisterReceiver installs the handler the
// transport calls with each raw chunk, in arrival order, one call at a time.
// Chunk boundaries carry no meaning.
type Transport interface {
	Send(b []byte) error
	RegisterReceiver(r Receiver)
}

// Receiver accepts raw chunks from a Transport. The chunk is only valid for
// the duration of the call.
type Receiver interface {
	Receive(chunk []byte)
}

// ReceiverFunc adapts a function to the Receiver interface.
type ReceiverFunc func(chunk []byte)

func (f ReceiverFunc) Receive(chunk []byte) { f(chunk) }

// DatagramReceiver accepts decoded datagrams.
type DatagramReceiver interface {
	ReceiveDatagram(datagram []byte)
}

// DatagramReceiverFunc adapts a function to the DatagramReceiver interface.
type DatagramReceiverFunc func(datagram []byte)

func (f DatagramReceiverFunc) ReceiveDatagram(datagram []byte) { f(datagram) }

// Diagnostic describes a frame discarded by a decoder.
type Diagnostic struct {
	// Peer is the address of the link that saw the frame, if known.
	Peer string
	// Err is one of ErrBadEscape, ErrAbortedFrame or ErrFrameTooLarge.
	Err error
	// Dropped is the number of raw bytes discarded with the frame.
	Dropped int
}

// DiagnosticHandler receives reports about malformed input. Decode errors
// are never returned to the transport; this is the only place they surface
// besides the log.
type DiagnosticHandler interface {
	Diagnostic(d Diagnostic)
}

// DiagnosticFunc adapts a function to the DiagnosticHandler interface.
type DiagnosticFunc func(d Diagnostic)

func (f DiagnosticFunc) Diagnostic(d Diagnostic) { f(d) }
