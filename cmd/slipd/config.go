package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

type linkConfig struct {
	Peer   string `toml:"peer"`
	Device string `toml:"device"`
	Baud   int    `toml:"baud"`
}

type fileConfig struct {
	LogLevel       string       `toml:"log_level"`
	MaxFrameSize   int          `toml:"max_frame_size"`
	IgnoreChecksum bool         `toml:"ignore_checksum"`
	Links          []linkConfig `toml:"link"`
}

type daemonConfig struct {
	LogLevel       string
	MaxFrameSize   int
	IgnoreChecksum bool
	Links          []linkConfig
}

const defaultBaud = 115200

func defaultDaemonConfig() daemonConfig {
	return daemonConfig{
		LogLevel:     "info",
		MaxFrameSize: 4096,
	}
}

func loadConfig(path string) (daemonConfig, error) {
	cfg := defaultDaemonConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return daemonConfig{}, fmt.Errorf("load slipd config: %w", err)
	}

	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if meta.IsDefined("max_frame_size") {
		if raw.MaxFrameSize < 0 {
			return daemonConfig{}, fmt.Errorf("max_frame_size must not be negative: %d", raw.MaxFrameSize)
		}
		cfg.MaxFrameSize = raw.MaxFrameSize
	}

	if meta.IsDefined("ignore_checksum") {
		cfg.IgnoreChecksum = raw.IgnoreChecksum
	}

	for i, l := range raw.Links {
		l.Peer = strings.TrimSpace(l.Peer)
		l.Device = strings.TrimSpace(l.Device)
		if l.Peer == "" {
			return daemonConfig{}, fmt.Errorf("link %d: peer is required", i)
		}
		if l.Device == "" {
			return daemonConfig{}, fmt.Errorf("link %d (%s): device is required", i, l.Peer)
		}
		if l.Baud == 0 {
			l.Baud = defaultBaud
		}
		cfg.Links = append(cfg.Links, l)
	}
	if len(cfg.Links) == 0 {
		return daemonConfig{}, errors.New("no [[link]] configured")
	}

	return cfg, nil
}
