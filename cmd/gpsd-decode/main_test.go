package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gpsdjson/internal/sink"
)

const captureBody = `# gpspipe -w
{"class":"VERSION","release":"3.25","proto_major":3,"proto_minor":15}
{"class":"DEVICES","devices":[{"class":"DEVICE","path":"/dev/ttyACM0","driver":"u-blox","bps":9600}]}
{"class":"TPV","mode":3,"time":"2023-01-02T03:04:05.000Z","lat":46.5,"lon":7.25}
$GPGGA,092750.000,5321.6802,N,00630.3372,W,1,8,1.03,61.7,M,55.2,M,,*76
{"class":"SKY","time":"2023-01-02T03:04:06.000Z","satellites":[{"PRN":7,"used":true}]}
{"class":"TPV","mode":3,"time":"2023-01-02T03:04:15.000Z","lat":46.6,"lon":7.26}
not json
`

func writeCapture(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "capture.ndjson")
	if err := os.WriteFile(p, []byte(captureBody), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return p
}

func TestRun_ReplayToStdout(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"--replay", writeCapture(t), "--speed", "0"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v (stderr=%s)", err, stderr.String())
	}
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("lines=%d want 5:\n%s", len(lines), stdout.String())
	}
	for i, want := range []string{"VERSION", "DEVICES", "TPV", "SKY", "TPV"} {
		if !strings.Contains(lines[i], `"class":"`+want+`"`) {
			t.Fatalf("line %d=%s want class %s", i, lines[i], want)
		}
	}
	if !strings.Contains(stderr.String(), "gpsd decode failed") {
		t.Fatalf("expected a decode warning in logs: %s", stderr.String())
	}
}

func TestRun_CBOROutput(t *testing.T) {
	var stdout, stderr bytes.Buffer
	cfgPath := filepath.Join(t.TempDir(), "cfg.yaml")
	body := "source:\n  kind: file\n  path: " + writeCapture(t) + "\noutput:\n  format: cbor\n  classes: [tpv]\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	if err := run(context.Background(), []string{"--config", cfgPath}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout.Len() == 0 {
		t.Fatalf("no output")
	}
	// The first item of the CBOR sequence is the first TPV.
	first, err := sink.Encode(sink.FormatCBOR, mustTPV(t))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.HasPrefix(stdout.Bytes(), first) {
		t.Fatalf("output does not start with the first TPV")
	}
}

func TestRun_Summary(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"--summary", writeCapture(t)}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	out := stdout.String()
	for _, want := range []string{"lines: 7\n", "records: 5\n", "nmea_sentences: 1\n", "invalid_lines: 1\n", "span: 10s\n", "  TPV: 2\n"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestRun_FlagErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"--protocol", "ancient"}, &stdout, &stderr); err == nil {
		t.Fatalf("expected protocol error")
	}
	if err := run(context.Background(), []string{"extra"}, &stdout, &stderr); err == nil {
		t.Fatalf("expected error for positional args")
	}
	if err := run(context.Background(), []string{"--help"}, &stdout, &stderr); err != nil {
		t.Fatalf("--help err=%v", err)
	}
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	cfg, err := loadConfig(options{protocol: "legacy", replay: "x.ndjson", speed: 4, speedSet: true, format: "cbor", logLevel: "debug"})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Decoder.Protocol != "legacy" || cfg.Source.Kind != "file" || cfg.Source.Path != "x.ndjson" {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.Source.Speed != 4 || cfg.Output.Format != "cbor" || cfg.Log.Level != "debug" {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestParseFlags_Speed(t *testing.T) {
	var stderr bytes.Buffer
	o, err := parseFlags(nil, &stderr)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if o.speedSet || o.speed != 0 {
		t.Fatalf("speed=%v set=%v want unset 0", o.speed, o.speedSet)
	}

	o, err = parseFlags([]string{"--speed", "0"}, &stderr)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if !o.speedSet {
		t.Fatalf("explicit --speed 0 should count as set")
	}

	// A config value survives when the flag is absent.
	cfg, err := loadConfig(options{replay: "x.ndjson"})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Source.Speed != 0 {
		t.Fatalf("speed=%v want 0", cfg.Source.Speed)
	}

	stderr.Reset()
	if _, err := parseFlags([]string{"--help"}, &stderr); err == nil {
		t.Fatalf("expected ErrHelp")
	}
	if strings.Contains(stderr.String(), "-1") {
		t.Fatalf("help shows a sentinel default:\n%s", stderr.String())
	}
}

func TestLoadConfig_SpeedFlagOverridesFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(cfgPath, []byte("source: {kind: file, path: x.ndjson, speed: 3}\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	cfg, err := loadConfig(options{configPath: cfgPath})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Source.Speed != 3 {
		t.Fatalf("speed=%v want 3 from file", cfg.Source.Speed)
	}
	cfg, err = loadConfig(options{configPath: cfgPath, speed: 0, speedSet: true})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Source.Speed != 0 {
		t.Fatalf("speed=%v want 0 from flag", cfg.Source.Speed)
	}
}
