package slip

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Stats holds per-link traffic counters.
type Stats struct {
	FramesSent     uint64
	BytesSent      uint64 // raw bytes handed to the transport
	FramesReceived uint64
	BytesReceived  uint64 // raw bytes delivered by the transport
	FramesDropped  uint64
	Separators     uint64 // End bytes that closed no frame
}

// Link is the framing engine for one transport. It encodes outbound
// datagrams into frames and decodes inbound chunks back into datagrams,
// handing each one to the upward receiver.
type Link struct {
	transport Transport
	up        DatagramReceiver
	opts      options
	log       zerolog.Logger
	dec       Decoder

	framesSent     atomic.Uint64
	bytesSent      atomic.Uint64
	framesReceived atomic.Uint64
	bytesReceived  atomic.Uint64
	framesDropped  atomic.Uint64
	separators     atomic.Uint64
	pending        atomic.Int64
}

// NewLink binds a new Link to t and registers it as t's receiver. Decoded
// datagrams are passed to up, which may be nil to discard them.
func NewLink(t Transport, up DatagramReceiver, opts ...Option) *Link {
	o := buildOptions(opts)
	l := &Link{
		transport: t,
		up:        up,
		opts:      o,
		log:       o.logger.With().Str("peer", o.peer).Logger(),
	}
	l.dec.MaxFrameSize = o.maxFrameSize
	t.RegisterReceiver(l)
	return l
}

// Peer returns the address the link was named after, or "".
func (l *Link) Peer() string {
	return l.opts.peer
}

// IgnoreChecksum reports the configured checksum flag. See WithIgnoreChecksum.
func (l *Link) IgnoreChecksum() bool {
	return l.opts.ignoreChecksum
}

// Send frames datagram and writes it to the transport. Transport errors are
// returned unchanged.
func (l *Link) Send(datagram []byte) error {
	frame := Encode(datagram)
	if err := l.transport.Send(frame); err != nil {
		return err
	}
	l.framesSent.Add(1)
	l.bytesSent.Add(uint64(len(frame)))
	l.log.Trace().Int("len", len(datagram)).Msg("frame sent")
	return nil
}

// Receive decodes one raw chunk. It is the handler registered on the
// transport and must not be called concurrently or from the upward receiver.
func (l *Link) Receive(chunk []byte) {
	l.bytesReceived.Add(uint64(len(chunk)))
	l.dec.Feed(chunk, l.deliver, l.drop)
	l.sync()
}

// Pending reports the raw bytes of an unterminated frame held by the link.
// It is safe to call from any goroutine.
func (l *Link) Pending() int {
	return int(l.pending.Load())
}

// Reset discards a partially received frame. Like Receive, it must be
// called from the transport's receive path.
func (l *Link) Reset() {
	l.dec.Reset()
	l.sync()
}

// sync publishes the decoder state read by Pending and Stats.
func (l *Link) sync() {
	l.pending.Store(int64(l.dec.Pending()))
	l.separators.Store(l.dec.Separators())
}

// Stats returns a snapshot of the link counters.
func (l *Link) Stats() Stats {
	return Stats{
		FramesSent:     l.framesSent.Load(),
		BytesSent:      l.bytesSent.Load(),
		FramesReceived: l.framesReceived.Load(),
		BytesReceived:  l.bytesReceived.Load(),
		FramesDropped:  l.framesDropped.Load(),
		Separators:     l.separators.Load(),
	}
}

func (l *Link) deliver(datagram []byte) {
	l.framesReceived.Add(1)
	l.log.Trace().Int("len", len(datagram)).Msg("frame received")
	if l.up != nil {
		l.up.ReceiveDatagram(datagram)
	}
}

func (l *Link) drop(d Diagnostic) {
	l.framesDropped.Add(1)
	d.Peer = l.opts.peer
	l.log.Debug().Err(d.Err).Int("dropped", d.Dropped).Msg("frame discarded")
	if l.opts.diagnostics != nil {
		l.opts.diagnostics.Diagnostic(d)
	}
}
