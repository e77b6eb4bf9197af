package slip

import (
	"errors"
	"fmt"
	"net/netip"
	"sort"
	"strings"
	"sync/atomic"
)

var (
	// ErrUnknownNextHop is returned by Send for an address with no link.
	ErrUnknownNextHop = errors.New("slip: unknown next hop")
	// ErrDuplicateAddress is returned by New when two peers share an address.
	ErrDuplicateAddress = errors.New("slip: duplicate peer address")
	// ErrInvalidAddress is returned by New for a peer address that is not a dotted-quad IPv4.
	ErrInvalidAddress = errors.New("slip: peer address is not an IPv4 address")
)

// Peer pairs the IPv4 address of the station at the far end of a link with
// the transport that reaches it.
type Peer struct {
	Addr      string
	Transport Transport
}

// Multiplexer owns one Link per peer. It routes outbound datagrams by next
// hop and funnels every link's inbound datagrams into one receiver.
//
// The peer table is fixed at construction.
type Multiplexer struct {
	links map[string]*Link
	sink  atomic.Pointer[sinkFunc]
}

type sinkFunc func(peer string, datagram []byte)

// New builds a Multiplexer with one Link per peer. Addresses must be IPv4
// dotted quads and unique. opts apply to every link.
func New(peers []Peer, opts ...Option) (*Multiplexer, error) {
	m := &Multiplexer{links: make(map[string]*Link, len(peers))}
	for _, p := range peers {
		addr, err := canonicalAddr(p.Addr)
		if err != nil {
			return nil, err
		}
		if _, ok := m.links[addr]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAddress, addr)
		}
		if p.Transport == nil {
			return nil, fmt.Errorf("slip: peer %s has no transport", addr)
		}
		linkOpts := append(append([]Option(nil), opts...), WithPeer(addr))
		m.links[addr] = NewLink(p.Transport, fanIn{m: m, peer: addr}, linkOpts...)
	}
	return m, nil
}

// NewFromMap is New for an address to transport mapping.
func NewFromMap(transports map[string]Transport, opts ...Option) (*Multiplexer, error) {
	peers := make([]Peer, 0, len(transports))
	for addr, t := range transports {
		peers = append(peers, Peer{Addr: addr, Transport: t})
	}
	return New(peers, opts...)
}

// OnDatagram registers the upward receiver, replacing any previous one.
// A nil receiver, including a nil DatagramReceiverFunc, unregisters;
// datagrams arriving meanwhile are discarded.
func (m *Multiplexer) OnDatagram(r DatagramReceiver) {
	if f, ok := r.(DatagramReceiverFunc); r == nil || ok && f == nil {
		m.sink.Store(nil)
		return
	}
	fn := sinkFunc(func(_ string, datagram []byte) { r.ReceiveDatagram(datagram) })
	m.sink.Store(&fn)
}

// OnDatagramFrom is OnDatagram for a receiver that also wants the address of
// the link a datagram arrived on. It shares the single registration slot.
func (m *Multiplexer) OnDatagramFrom(fn func(peer string, datagram []byte)) {
	if fn == nil {
		m.sink.Store(nil)
		return
	}
	s := sinkFunc(fn)
	m.sink.Store(&s)
}

// Send forwards datagram over the link to nextHop. Transport errors are
// returned unchanged.
func (m *Multiplexer) Send(datagram []byte, nextHop string) error {
	l, ok := m.lookup(nextHop)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNextHop, nextHop)
	}
	return l.Send(datagram)
}

// Link returns the link for addr.
func (m *Multiplexer) Link(addr string) (*Link, bool) {
	return m.lookup(addr)
}

// Peers returns the configured peer addresses in sorted order.
func (m *Multiplexer) Peers() []string {
	out := make([]string, 0, len(m.links))
	for addr := range m.links {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

// Stats returns the counters of the link to addr.
func (m *Multiplexer) Stats(addr string) (Stats, bool) {
	l, ok := m.lookup(addr)
	if !ok {
		return Stats{}, false
	}
	return l.Stats(), true
}

func (m *Multiplexer) lookup(addr string) (*Link, bool) {
	if l, ok := m.links[addr]; ok {
		return l, true
	}
	canon, err := canonicalAddr(addr)
	if err != nil {
		return nil, false
	}
	l, ok := m.links[canon]
	return l, ok
}

func (m *Multiplexer) deliver(peer string, datagram []byte) {
	if fn := m.sink.Load(); fn != nil {
		(*fn)(peer, datagram)
	}
}

type fanIn struct {
	m    *Multiplexer
	peer string
}

func (f fanIn) ReceiveDatagram(datagram []byte) {
	f.m.deliver(f.peer, datagram)
}

func canonicalAddr(raw string) (string, error) {
	a, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil || !a.Is4() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}
	return a.String(), nil
}
