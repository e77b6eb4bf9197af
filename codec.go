package slip

import (
	"bytes"
	"errors"
)

// Special bytes of the RFC 1055 framing.
const (
	End    byte = 0xC0 // frame delimiter
	Esc    byte = 0xDB // introduces a two-byte substitution
	EscEnd byte = 0xDC // Esc, EscEnd stands for a literal End
	EscEsc byte = 0xDD // Esc, EscEsc stands for a literal Esc
)

var (
	// ErrBadEscape reports an Esc followed by something other than EscEnd or EscEsc.
	ErrBadEscape = errors.New("slip: escape byte not followed by a valid escape code")
	// ErrAbortedFrame reports an End arriving right after an Esc.
	ErrAbortedFrame = errors.New("slip: frame terminated inside an escape sequence")
	// ErrFrameTooLarge reports a frame longer than Decoder.MaxFrameSize.
	ErrFrameTooLarge = errors.New("slip: frame exceeds maximum size")
)

// EncodedLen returns the size of the frame Encode would produce for datagram.
func EncodedLen(datagram []byte) int {
	n := len(datagram) + 2
	for _, b := range datagram {
		if b == End || b == Esc {
			n++
		}
	}
	return n
}

// Encode returns datagram as a delimited, byte-stuffed frame:
// End, stuffed(datagram), End.
func Encode(datagram []byte) []byte {
	return AppendEncode(make([]byte, 0, EncodedLen(datagram)), datagram)
}

// AppendEncode appends the frame for datagram to dst and returns the extended slice.
func AppendEncode(dst, datagram []byte) []byte {
	dst = append(dst, End)
	for _, b := range datagram {
		switch b {
		case End:
			dst = append(dst, Esc, EscEnd)
		case Esc:
			dst = append(dst, Esc, EscEsc)
		default:
			dst = append(dst, b)
		}
	}
	return append(dst, End)
}

type decoderState int

const (
	stateEmpty decoderState = iota
	stateAccumulating
)

// Decoder reassembles datagrams from an arbitrarily chunked byte stream.
//
// The stream is split on End bytes. Every End closes the segment in
// progress: an empty segment is a separator, anything else is one frame.
// Bytes after the last End of a chunk stay buffered until a later chunk
// brings the terminating End. Unstuffing happens as bytes are buffered, with
// a pending Esc carried across chunk boundaries, so an escape pair split
// between two chunks decodes the same as an unsplit one.
//
// A Decoder is not safe for concurrent use, and Feed must not be called
// from inside its own callbacks.
type Decoder struct {
	// MaxFrameSize bounds the decoded size of one frame. Zero means no limit.
	MaxFrameSize int

	state      decoderState
	escaped    bool
	buf        []byte
	raw        int
	err        error
	separators uint64
}

// Feed consumes one raw chunk. deliver is called once per completed
// datagram, in stream order; the slice it receives is owned by the callee.
// drop, if not nil, is called for every frame discarded as malformed.
func (d *Decoder) Feed(chunk []byte, deliver func([]byte), drop func(Diagnostic)) {
	for len(chunk) > 0 {
		i := bytes.IndexByte(chunk, End)
		if i < 0 {
			d.absorb(chunk)
			return
		}
		d.absorb(chunk[:i])
		d.terminate(deliver, drop)
		chunk = chunk[i+1:]
	}
}

// Pending reports how many raw bytes of an unterminated frame are buffered.
// Like Feed, it must not run concurrently with other Decoder calls.
func (d *Decoder) Pending() int {
	return d.raw
}

// Separators counts End bytes that closed no frame, such as the opening End
// of a frame or the second End of an empty frame.
// Like Feed, it must not run concurrently with other Decoder calls.
func (d *Decoder) Separators() uint64 {
	return d.separators
}

// Reset discards any partial frame and returns the decoder to its empty state.
// The separator count is kept.
func (d *Decoder) Reset() {
	d.state = stateEmpty
	d.escaped = false
	d.buf = d.buf[:0]
	d.raw = 0
	d.err = nil
}

// absorb adds an End-free segment to the frame in progress.
func (d *Decoder) absorb(seg []byte) {
	if len(seg) == 0 {
		return
	}
	d.state = stateAccumulating
	d.raw += len(seg)
	for _, b := range seg {
		if d.escaped {
			d.escaped = false
			switch b {
			case EscEnd:
				d.put(End)
			case EscEsc:
				d.put(Esc)
			default:
				d.fail(ErrBadEscape)
			}
			continue
		}
		if b == Esc {
			d.escaped = true
			continue
		}
		d.put(b)
	}
}

func (d *Decoder) put(b byte) {
	if d.err != nil {
		return
	}
	if d.MaxFrameSize > 0 && len(d.buf) >= d.MaxFrameSize {
		d.fail(ErrFrameTooLarge)
		return
	}
	d.buf = append(d.buf, b)
}

// fail marks the frame in progress as corrupt. Its bytes are no longer kept;
// the frame is reported and discarded at its terminating End.
func (d *Decoder) fail(err error) {
	if d.err == nil {
		d.err = err
		d.buf = d.buf[:0]
	}
}

// terminate handles one End byte.
func (d *Decoder) terminate(deliver func([]byte), drop func(Diagnostic)) {
	if d.state == stateEmpty {
		d.separators++
		return
	}
	if d.escaped {
		d.fail(ErrAbortedFrame)
	}
	err, raw := d.err, d.raw
	var datagram []byte
	if err == nil {
		datagram = bytes.Clone(d.buf)
	}
	d.Reset()

	if err != nil {
		if drop != nil {
			drop(Diagnostic{Err: err, Dropped: raw})
		}
		return
	}
	deliver(datagram)
}
