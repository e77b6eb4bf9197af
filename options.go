package slip

import "github.com/rs/zerolog"

// Option configures a Link or a Multiplexer.
type Option func(*options)

type options struct {
	logger         zerolog.Logger
	peer           string
	ignoreChecksum bool
	maxFrameSize   int
	diagnostics    DiagnosticHandler
}

func defaultOptions() options {
	return options{logger: zerolog.Nop()}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithLogger sets the logger. Links log dropped frames at debug level and
// frame traffic at trace level. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithPeer names the link after the address of the station at the other end.
// The name appears in logs and diagnostics. Multiplexer sets it for every link.
func WithPeer(addr string) Option {
	return func(o *options) { o.peer = addr }
}

// WithIgnoreChecksum records whether frame checksums should be ignored.
//
// The framing carries no checksum, so the flag has no effect on encoding or
// decoding. It is kept so configurations that set it keep working and can
// query it through Link.IgnoreChecksum.
func WithIgnoreChecksum(ignore bool) Option {
	return func(o *options) { o.ignoreChecksum = ignore }
}

// WithMaxFrameSize bounds the decoded size of an inbound frame. A frame that
// grows past n bytes is dropped with ErrFrameTooLarge and the decoder
// resynchronises on the next End. Zero disables the bound.
func WithMaxFrameSize(n int) Option {
	return func(o *options) { o.maxFrameSize = n }
}

// WithDiagnostics installs a handler for dropped frames.
func WithDiagnostics(h DiagnosticHandler) Option {
	return func(o *options) { o.diagnostics = h }
}
