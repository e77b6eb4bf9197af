package slip

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// ErrPortClosed is reported by a Port used after Close.
var ErrPortClosed = errors.New("slip: port closed")

// Port is a raw Linux serial line used as a Transport.
// Send may be called from any goroutine; received chunks are delivered from a
// single read goroutine started by the first RegisterReceiver call.
type Port struct {
	fd        int
	file      *os.File
	done      chan struct{}
	closeOnce sync.Once
	startOnce sync.Once
	config    Config
	receiver  atomic.Pointer[Receiver]
	pipeR     int // self-pipe read fd
	pipeW     int // self-pipe write fd
}

// Config holds configuration parameters for opening a serial port.
type Config struct {
	Device   string
	BaudRate int
	// ReadBufferSize is the largest chunk handed to the receiver, default 4096.
	ReadBufferSize int
	// OnError, if set, is called when the read loop stops on an error.
	OnError func(error)
}

// Open opens a serial port using the provided Config and returns a Port.
// The port is configured for raw, 8-bit clean, non-buffered operation.
func Open(cfg Config) (*Port, error) {
	fd, err := unix.Open(cfg.Device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0666)
	if err != nil {
		return nil, fmt.Errorf("open failed: %w", err)
	}

	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("get termios: %w", err)
	}

	// Raw mode; End and Esc must pass untouched
	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB
	termios.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL

	baud := baudToUnix(cfg.BaudRate)
	termios.Cflag &^= unix.CBAUD
	termios.Cflag |= baud

	// VMIN=1, VTIME=0: a read returns as soon as one byte is there
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set termios: %w", err)
	}

	// Back to blocking mode now that config is done
	if err := unix.SetNonblock(fd, false); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set blocking: %w", err)
	}

	// Self-pipe for killability
	pipeFds := make([]int, 2)
	if err := unix.Pipe(pipeFds); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("pipe: %w", err)
	}

	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = 4096
	}

	return &Port{
		fd:     fd,
		file:   os.NewFile(uintptr(fd), cfg.Device),
		done:   make(chan struct{}),
		config: cfg,
		pipeR:  pipeFds[0],
		pipeW:  pipeFds[1],
	}, nil
}

// Device returns the device path the port was opened on.
func (p *Port) Device() string {
	return p.config.Device
}

// Send writes b to the serial line in full.
func (p *Port) Send(b []byte) error {
	select {
	case <-p.done:
		return ErrPortClosed
	default:
	}
	_, err := p.file.Write(b)
	return err
}

// RegisterReceiver sets the handler for raw chunks. The first call starts the
// read loop; later calls replace the handler.
func (p *Port) RegisterReceiver(r Receiver) {
	p.receiver.Store(&r)
	p.startOnce.Do(func() {
		go p.readLoop()
	})
}

// readLoop polls the line and the self-pipe, handing every chunk read to the
// current receiver until Close is called or a read fails.
func (p *Port) readLoop() {
	buf := make([]byte, p.config.ReadBufferSize)
	for {
		pfd := []unix.PollFd{
			{Fd: int32(p.fd), Events: unix.POLLIN},
			{Fd: int32(p.pipeR), Events: unix.POLLIN},
		}
		_, err := unix.Poll(pfd, -1)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			p.fail(err)
			return
		}
		select {
		case <-p.done:
			return
		default:
		}
		if pfd[1].Revents&unix.POLLIN != 0 {
			return
		}
		if pfd[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			n, err := p.file.Read(buf)
			if err != nil {
				p.fail(err)
				return
			}
			if r := p.receiver.Load(); r != nil && n > 0 {
				(*r).Receive(buf[:n])
			}
		}
	}
}

func (p *Port) fail(err error) {
	select {
	case <-p.done:
		return
	default:
	}
	if p.config.OnError != nil {
		p.config.OnError(err)
	}
}

// Close closes the serial port and stops the read loop.
// Safe to call multiple times; subsequent calls are no-ops.
func (p *Port) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		// Wake up poll
		_, werr := unix.Write(p.pipeW, []byte{1})
		err = multierr.Combine(
			werr,
			p.file.Close(),
			unix.Close(p.pipeR),
			unix.Close(p.pipeW),
		)
	})
	return err
}

func baudToUnix(baud int) uint32 {
	switch baud {
	case 9600:
		return unix.B9600
	case 19200:
		return unix.B19200
	case 38400:
		return unix.B38400
	case 57600:
		return unix.B57600
	case 115200:
		return unix.B115200
	case 230400:
		return unix.B230400
	default:
		return unix.B115200 // fallback
	}
}
