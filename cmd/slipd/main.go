package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	slip "github.com/luhtfiimanal/go-linux-slip"
	"github.com/luhtfiimanal/go-linux-slip/internal/logging"
)

func main() {
	configPath := flag.String("config", "slipd.toml", "Path to the link configuration")
	sendHex := flag.String("send", "", "Hex-encoded datagram to send once at startup")
	sendTo := flag.String("to", "", "Next hop address for -send")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	log := logging.New("slipd", cfg.LogLevel, os.Stderr)

	d, err := startDaemon(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("startup failed")
		os.Exit(1)
	}
	defer func() {
		if err := d.Close(); err != nil {
			log.Warn().Err(err).Msg("close links")
		}
	}()

	if *sendHex != "" {
		payload, err := hex.DecodeString(*sendHex)
		if err != nil {
			log.Error().Err(err).Msg("bad -send payload")
			return
		}
		if err := d.mux.Send(payload, *sendTo); err != nil {
			log.Error().Err(err).Str("next_hop", *sendTo).Msg("send failed")
		} else {
			log.Info().Str("next_hop", *sendTo).Int("len", len(payload)).Msg("datagram sent")
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down")
}

type daemon struct {
	ports []*slip.Port
	mux   *slip.Multiplexer
}

// startDaemon opens every configured serial line and binds them to one
// multiplexer that logs what it receives.
func startDaemon(cfg daemonConfig, log zerolog.Logger) (*daemon, error) {
	d := &daemon{}
	peers := make([]slip.Peer, 0, len(cfg.Links))
	for _, l := range cfg.Links {
		peerLog := log.With().Str("peer", l.Peer).Str("device", l.Device).Logger()
		port, err := slip.Open(slip.Config{
			Device:   l.Device,
			BaudRate: l.Baud,
			OnError: func(err error) {
				peerLog.Error().Err(err).Msg("serial read failed")
			},
		})
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("open %s: %w", l.Device, err), d.Close())
		}
		d.ports = append(d.ports, port)
		peers = append(peers, slip.Peer{Addr: l.Peer, Transport: port})
	}

	mux, err := slip.New(peers,
		slip.WithLogger(log),
		slip.WithMaxFrameSize(cfg.MaxFrameSize),
		slip.WithIgnoreChecksum(cfg.IgnoreChecksum),
		slip.WithDiagnostics(slip.DiagnosticFunc(func(diag slip.Diagnostic) {
			log.Warn().Str("peer", diag.Peer).Err(diag.Err).Int("dropped", diag.Dropped).Msg("malformed frame")
		})),
	)
	if err != nil {
		return nil, multierr.Append(err, d.Close())
	}
	mux.OnDatagramFrom(func(peer string, datagram []byte) {
		log.Info().Str("peer", peer).Str("datagram", describeDatagram(datagram)).Msg("datagram received")
	})
	d.mux = mux

	log.Info().Strs("peers", mux.Peers()).Msg("links up")
	return d, nil
}

func (d *daemon) Close() error {
	var err error
	for _, p := range d.ports {
		err = multierr.Append(err, p.Close())
	}
	d.ports = nil
	return err
}
