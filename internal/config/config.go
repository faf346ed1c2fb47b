package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"gpsdjson/internal/gpsd"
	"gpsdjson/internal/sink"
)

type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Decoder DecoderConfig `yaml:"decoder"`
	Watch   WatchConfig   `yaml:"watch"`
	Output  OutputConfig  `yaml:"output"`
	Log     LogConfig     `yaml:"log"`
}

// SourceConfig selects where gpsd JSON comes from.
//
// kind: gpsd (TCP, default), file (NDJSON capture) or serial.
type SourceConfig struct {
	Kind string `yaml:"kind"`

	Addr           string        `yaml:"addr"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`

	Path  string  `yaml:"path"`
	Speed float64 `yaml:"speed"`
	Loop  bool    `yaml:"loop"`

	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

type DecoderConfig struct {
	Protocol string `yaml:"protocol"`
}

// WatchConfig is sent as ?WATCH= when connecting to gpsd. enable and json
// are always on.
type WatchConfig struct {
	NMEA   bool   `yaml:"nmea"`
	Scaled bool   `yaml:"scaled"`
	PPS    bool   `yaml:"pps"`
	Device string `yaml:"device"`
}

type OutputConfig struct {
	Format  string   `yaml:"format"`
	Classes []string `yaml:"classes"`

	Stdout    bool            `yaml:"stdout"`
	UDP       UDPConfig       `yaml:"udp"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	WebSocket WebSocketConfig `yaml:"websocket"`
}

type UDPConfig struct {
	Dest string `yaml:"dest"`
}

type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         int    `yaml:"qos"`
	Retain      bool   `yaml:"retain"`
}

type WebSocketConfig struct {
	Listen     string `yaml:"listen"`
	Path       string `yaml:"path"`
	SendBuffer int    `yaml:"send_buffer"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a YAML file, or JSON with comments when the extension is
// .json or .jsonc.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		b = jsonc.ToJSON(b)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return Normalize(cfg)
}

// Default is the configuration used when no file is given.
func Default() Config {
	cfg, err := Normalize(Config{})
	if err != nil {
		panic("config: defaults do not validate: " + err.Error())
	}
	return cfg
}

// Normalize fills defaults and validates. Callers that override fields
// after Load (command line flags) should run it again.
func Normalize(cfg Config) (Config, error) {
	src := &cfg.Source
	src.Kind = strings.ToLower(strings.TrimSpace(src.Kind))
	if src.Kind == "" {
		src.Kind = "gpsd"
	}
	switch src.Kind {
	case "gpsd":
		if src.Addr == "" {
			src.Addr = "127.0.0.1:2947"
		}
		if src.ReconnectDelay <= 0 {
			src.ReconnectDelay = 250 * time.Millisecond
		}
	case "file":
		if src.Path == "" {
			return Config{}, fmt.Errorf("source.path is required when source.kind is file")
		}
		if src.Speed < 0 {
			return Config{}, fmt.Errorf("source.speed must be >= 0")
		}
	case "serial":
		if src.Device == "" {
			return Config{}, fmt.Errorf("source.device is required when source.kind is serial")
		}
		if src.Baud == 0 {
			src.Baud = 9600
		}
		if src.Baud < 0 {
			return Config{}, fmt.Errorf("source.baud must be > 0")
		}
	default:
		return Config{}, fmt.Errorf("source.kind must be gpsd, file or serial (got %q)", src.Kind)
	}

	if _, err := gpsd.ParseProtocol(cfg.Decoder.Protocol); err != nil {
		return Config{}, fmt.Errorf("decoder.protocol: %w", err)
	}
	if cfg.Decoder.Protocol == "" {
		cfg.Decoder.Protocol = gpsd.ProtocolCurrent.String()
	}

	out := &cfg.Output
	if _, err := sink.ParseFormat(out.Format); err != nil {
		return Config{}, fmt.Errorf("output.format: %w", err)
	}
	if out.Format == "" {
		out.Format = "json"
	}
	if out.MQTT.Broker != "" {
		if out.MQTT.QoS < 0 || out.MQTT.QoS > 2 {
			return Config{}, fmt.Errorf("output.mqtt.qos must be 0, 1 or 2")
		}
		if out.MQTT.ClientID == "" {
			out.MQTT.ClientID = "gpsd-decode"
		}
		if out.MQTT.TopicPrefix == "" {
			out.MQTT.TopicPrefix = "gpsd"
		}
	}
	if out.WebSocket.Listen != "" {
		if out.WebSocket.Path == "" {
			out.WebSocket.Path = "/gpsd"
		}
		if !strings.HasPrefix(out.WebSocket.Path, "/") {
			return Config{}, fmt.Errorf("output.websocket.path must start with /")
		}
		if out.WebSocket.SendBuffer <= 0 {
			out.WebSocket.SendBuffer = 16
		}
	}
	// Nothing else configured: print to stdout.
	if out.UDP.Dest == "" && out.MQTT.Broker == "" && out.WebSocket.Listen == "" {
		out.Stdout = true
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	switch cfg.Log.Level {
	case "":
		cfg.Log.Level = "info"
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("log.level must be debug, info, warn or error (got %q)", cfg.Log.Level)
	}
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	switch cfg.Log.Format {
	case "":
		cfg.Log.Format = "text"
	case "text", "json":
	default:
		return Config{}, fmt.Errorf("log.format must be text or json (got %q)", cfg.Log.Format)
	}

	return cfg, nil
}
