// gpsd-decode connects to gpsd (or replays a capture, or reads a serial
// line), decodes every JSON report into typed records and republishes them
// to stdout, UDP, MQTT and websocket clients.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	nmea "github.com/adrianmo/go-nmea"
	"github.com/spf13/pflag"

	"gpsdjson/internal/config"
	"gpsdjson/internal/gpsd"
	"gpsdjson/internal/sink"
	"gpsdjson/internal/stream"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	protocol   string
	replay     string
	speed      float64
	speedSet   bool
	format     string
	logLevel   string
	summary    string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := pflag.NewFlagSet("gpsd-decode", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "path to YAML or JSONC config")
	fs.StringVar(&o.protocol, "protocol", "", "gpsd protocol: current or legacy")
	fs.StringVar(&o.replay, "replay", "", "replay an NDJSON capture instead of connecting to gpsd")
	fs.Float64Var(&o.speed, "speed", 0, "replay speed multiplier (0 = as fast as possible)")
	fs.StringVar(&o.format, "format", "", "output encoding: json or cbor")
	fs.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error")
	fs.StringVar(&o.summary, "summary", "", "print a per-class summary of an NDJSON capture and exit")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	o.speedSet = fs.Changed("speed")
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return o, nil
}

func loadConfig(o options) (config.Config, error) {
	cfg := config.Config{}
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return config.Config{}, fmt.Errorf("config load failed: %w", err)
		}
	}
	if o.protocol != "" {
		cfg.Decoder.Protocol = o.protocol
	}
	if o.replay != "" {
		cfg.Source.Kind = "file"
		cfg.Source.Path = o.replay
	}
	if o.speedSet {
		cfg.Source.Speed = o.speed
	}
	if o.format != "" {
		cfg.Output.Format = o.format
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return config.Normalize(cfg)
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	_ = level.UnmarshalText([]byte(cfg.Level))
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, stderr)

	protocol, _ := gpsd.ParseProtocol(cfg.Decoder.Protocol)
	dec := gpsd.New(gpsd.Options{Protocol: protocol, Logger: logger})

	if o.summary != "" {
		return printCaptureSummary(stdout, o.summary, dec, logger)
	}

	out, err := buildSinks(ctx, cfg, stdout, logger)
	if err != nil {
		return err
	}
	defer out.Close()

	router := stream.NewRouter(dec, logger, func(rec gpsd.Record) error {
		if err := out.Publish(ctx, rec); err != nil {
			logger.Warn("publish failed", "class", rec.Class(), "error", err)
		}
		return nil
	})
	router.OnNMEA(func(s nmea.Sentence) {
		logger.Debug("nmea sentence", "type", s.DataType(), "talker", s.TalkerID())
	})

	logger.Info("gpsd-decode starting", "source", cfg.Source.Kind, "protocol", protocol, "format", cfg.Output.Format)
	err = runSource(ctx, cfg, router, logger)
	logger.Info("gpsd-decode stopping", "stats", router.Stats())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runSource(ctx context.Context, cfg config.Config, router *stream.Router, logger *slog.Logger) error {
	src := cfg.Source
	switch src.Kind {
	case "file":
		return stream.ReplayFile(ctx, src.Path, stream.ReplayConfig{Speed: src.Speed, Loop: src.Loop}, router)

	case "serial":
		f, err := stream.OpenSerial(src.Device, src.Baud)
		if err != nil {
			return fmt.Errorf("open serial %s: %w", src.Device, err)
		}
		stop := context.AfterFunc(ctx, func() { _ = f.Close() })
		defer stop()
		defer f.Close()
		logger.Info("serial opened", "device", src.Device, "baud", src.Baud)
		return stream.ReadLines(ctx, f, router)

	default:
		client, err := stream.NewClient(stream.ClientConfig{
			Name:           "gpsd",
			Addr:           src.Addr,
			ReconnectDelay: src.ReconnectDelay,
			Watch: stream.WatchRequest{
				Enable: true,
				JSON:   true,
				NMEA:   cfg.Watch.NMEA,
				Scaled: cfg.Watch.Scaled,
				PPS:    cfg.Watch.PPS,
				Device: cfg.Watch.Device,
			},
			Logger: logger,
		})
		if err != nil {
			return err
		}
		if err := client.Start(ctx, router); err != nil {
			return err
		}
		<-ctx.Done()
		client.Close()
		snap := client.Snapshot()
		logger.Info("gpsd client stopped", "lines", snap.Lines, "last_error", snap.LastError)
		return nil
	}
}

func buildSinks(ctx context.Context, cfg config.Config, stdout io.Writer, logger *slog.Logger) (*sink.Fanout, error) {
	out := cfg.Output
	format, err := sink.ParseFormat(out.Format)
	if err != nil {
		return nil, err
	}

	var sinks []sink.Sink
	fail := func(err error) (*sink.Fanout, error) {
		_ = sink.NewFanout(sinks...).Close()
		return nil, err
	}

	if out.Stdout {
		sinks = append(sinks, sink.NewWriter(nopCloser{stdout}, format))
	}
	if out.UDP.Dest != "" {
		u, err := sink.NewUDP(out.UDP.Dest, format)
		if err != nil {
			return fail(fmt.Errorf("udp output: %w", err))
		}
		sinks = append(sinks, u)
		logger.Info("udp output", "dest", out.UDP.Dest)
	}
	if out.MQTT.Broker != "" {
		m, err := sink.DialMQTT(sink.MQTTConfig{
			Broker:      out.MQTT.Broker,
			ClientID:    out.MQTT.ClientID,
			TopicPrefix: out.MQTT.TopicPrefix,
			QoS:         byte(out.MQTT.QoS),
			Retain:      out.MQTT.Retain,
			Format:      format,
			Logger:      logger,
		})
		if err != nil {
			return fail(fmt.Errorf("mqtt output: %w", err))
		}
		sinks = append(sinks, m)
	}
	if out.WebSocket.Listen != "" {
		ln, err := net.Listen("tcp", out.WebSocket.Listen)
		if err != nil {
			return fail(fmt.Errorf("websocket output: %w", err))
		}
		hub := sink.NewHub(format, out.WebSocket.SendBuffer, logger)
		go func() {
			if err := hub.Serve(ctx, ln, out.WebSocket.Path); err != nil {
				logger.Error("websocket server stopped", "error", err)
			}
		}()
		sinks = append(sinks, hub)
		logger.Info("websocket output", "addr", ln.Addr().String(), "path", out.WebSocket.Path)
	}

	classes := make([]string, 0, len(out.Classes))
	for _, c := range out.Classes {
		classes = append(classes, strings.ToUpper(strings.TrimSpace(c)))
	}
	wrapped := make([]sink.Sink, 0, len(sinks))
	for _, s := range sinks {
		wrapped = append(wrapped, sink.NewFilter(s, classes))
	}
	return sink.NewFanout(wrapped...), nil
}

// nopCloser keeps the writer sink from closing stdout.
type nopCloser struct{ io.Writer }
