package slip

import (
	"os"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"
)

// openPTYPort opens a Port on the slave side of a fresh PTY pair.
func openPTYPort(t *testing.T, cfg Config) (*os.File, *Port) {
	t.Helper()
	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	cfg.Device = slave.Name()
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 115200
	}
	port, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { port.Close() })
	return master, port
}

func TestPort_DeliversRawChunks(t *testing.T) {
	master, port := openPTYPort(t, Config{})

	chunks := make(chan []byte, 16)
	port.RegisterReceiver(ReceiverFunc(func(c []byte) {
		chunks <- append([]byte(nil), c...)
	}))

	payload := []byte{End, 0x01, Esc, EscEnd, 0xFF, End}
	_, err := master.Write(payload)
	require.NoError(t, err)

	var got []byte
	deadline := time.After(500 * time.Millisecond)
	for len(got) < len(payload) {
		select {
		case c := <-chunks:
			got = append(got, c...)
		case <-deadline:
			t.Fatalf("timeout, got %x", got)
		}
	}
	require.Equal(t, payload, got)
}

func TestPort_Send(t *testing.T) {
	master, port := openPTYPort(t, Config{})

	frame := Encode([]byte("AB\xc0C"))
	require.NoError(t, port.Send(frame))

	buf := make([]byte, len(frame))
	n, err := master.Read(buf)
	require.NoError(t, err)
	require.Equal(t, frame, buf[:n])
}

func TestPort_MultiplexerOverPTY(t *testing.T) {
	master, port := openPTYPort(t, Config{ReadBufferSize: 3})

	mux, err := New([]Peer{{Addr: "192.168.0.2", Transport: port}})
	require.NoError(t, err)

	datagrams := make(chan []byte, 4)
	mux.OnDatagram(DatagramReceiverFunc(func(d []byte) { datagrams <- d }))

	// small read buffer forces the frames to arrive in pieces
	stream := append(Encode([]byte("AB\xc0C")), Encode([]byte{Esc, 'z'})...)
	_, err = master.Write(stream)
	require.NoError(t, err)

	for _, want := range [][]byte{[]byte("AB\xc0C"), {Esc, 'z'}} {
		select {
		case d := <-datagrams:
			require.Equal(t, want, d)
		case <-time.After(500 * time.Millisecond):
			t.Fatal("timeout waiting for datagram")
		}
	}

	require.NoError(t, mux.Send([]byte{End}, "192.168.0.2"))
	buf := make([]byte, 16)
	n, err := master.Read(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{End, Esc, EscEnd, End}, buf[:n])
}

func TestPort_PendingFromOtherGoroutine(t *testing.T) {
	master, port := openPTYPort(t, Config{ReadBufferSize: 2})

	link := NewLink(port, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			master.Write([]byte{End, 'a', 'b', 'c'})
			master.Write([]byte{End})
		}
		master.Write([]byte{End, 'p', 'q'})
	}()

	for {
		_ = link.Pending()
		_ = link.Stats()
		select {
		case <-done:
			require.Eventually(t, func() bool {
				return link.Pending() == 2 && link.Stats().FramesReceived == 50
			}, time.Second, 10*time.Millisecond)
			return
		default:
		}
	}
}

func TestPort_Killability(t *testing.T) {
	_, port := openPTYPort(t, Config{})

	port.RegisterReceiver(ReceiverFunc(func([]byte) {}))

	// Give the read loop a chance to block in poll
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, port.Close())
	require.ErrorIs(t, port.Send([]byte{End}), ErrPortClosed)

	// Should be a no-op due to closeOnce
	require.NoError(t, port.Close())
}

func TestPort_ErrorPropagation(t *testing.T) {
	errs := make(chan error, 1)
	master, port := openPTYPort(t, Config{OnError: func(err error) {
		select {
		case errs <- err:
		default:
		}
	}})
	port.RegisterReceiver(ReceiverFunc(func([]byte) {}))

	// Simulate device disconnect by closing master
	require.NoError(t, master.Close())

	select {
	case err := <-errs:
		require.Error(t, err)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for error after device disconnect")
	}
}

func TestPort_OpenMissingDevice(t *testing.T) {
	_, err := Open(Config{Device: "/dev/does-not-exist-slip"})
	require.Error(t, err)
}
