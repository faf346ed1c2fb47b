package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"gpsdjson/internal/gpsd"
)

func TestWatchRequest_Command(t *testing.T) {
	cmd, err := WatchRequest{Enable: true, JSON: true, Scaled: true}.Command()
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	got := string(cmd)
	if !strings.HasPrefix(got, "?WATCH={") || !strings.HasSuffix(got, "}\n") {
		t.Fatalf("cmd=%q", got)
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSuffix(strings.TrimPrefix(got, "?WATCH="), "\n")), &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if body["enable"] != true || body["json"] != true || body["scaled"] != true {
		t.Fatalf("body=%v", body)
	}
	if _, ok := body["nmea"]; ok {
		t.Fatalf("nmea should be omitted when false: %v", body)
	}
}

func TestNewClient_Validation(t *testing.T) {
	if _, err := NewClient(ClientConfig{}); err == nil || err.Error() != "gpsd client name is required" {
		t.Fatalf("err=%v", err)
	}
	c, err := NewClient(ClientConfig{Name: "gpsd"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.cfg.Addr != DefaultAddr {
		t.Fatalf("addr=%q want %q", c.cfg.Addr, DefaultAddr)
	}
	if snap := c.Snapshot(); snap.State != "stopped" {
		t.Fatalf("state=%q want stopped", snap.State)
	}
}

func TestClient_setState_ClearsStaleErrorOnConnected(t *testing.T) {
	c, err := NewClient(ClientConfig{Name: "t", Addr: "127.0.0.1:1"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.setState("error", "dial tcp: connection refused")
	c.setState("connected", "")

	snap := c.Snapshot()
	if snap.State != "connected" || snap.LastError != "" {
		t.Fatalf("snap=%+v", snap)
	}
}

func TestClient_SnapshotDuringStart(t *testing.T) {
	c, err := NewClient(ClientConfig{Name: "t", Addr: "127.0.0.1:1", ReconnectDelay: time.Millisecond})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	router, _ := newTestRouter(t, nil)

	stop := make(chan struct{})
	polled := make(chan struct{})
	go func() {
		defer close(polled)
		for {
			select {
			case <-stop:
				return
			default:
				_ = c.Snapshot()
			}
		}
	}()

	if err := c.Start(context.Background(), router); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	close(stop)
	<-polled
	c.Close()

	if got := c.Snapshot().State; got != "stopped" {
		t.Fatalf("state=%q want stopped", got)
	}
}

func TestClient_StreamsFromGPSD(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	watch := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Write([]byte(`{"class":"VERSION","release":"3.25","rev":"3.25","proto_major":3,"proto_minor":15}` + "\n"))
		line, err := bufio.NewReader(conn).ReadString('\n')
		if err != nil {
			return
		}
		watch <- line
		_, _ = conn.Write([]byte(ggaSentence + "\r\n"))
		_, _ = conn.Write([]byte(`{"class":"TPV","device":"/dev/ttyACM0","mode":3,"time":"2023-01-02T03:04:05.678Z","lat":46.5,"lon":7.25}` + "\n"))
		// Hold the connection until the client goes away.
		_, _ = conn.Read(make([]byte, 1))
	}()

	records := make(chan gpsd.Record, 4)
	router, _ := newTestRouter(t, func(rec gpsd.Record) error {
		records <- rec
		return nil
	})

	c, err := NewClient(ClientConfig{
		Name:  "gpsd",
		Addr:  ln.Addr().String(),
		Watch: WatchRequest{Enable: true, JSON: true, NMEA: true},
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx, router); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Close()

	if err := c.Start(ctx, router); err == nil {
		t.Fatalf("second Start should fail")
	}

	select {
	case got := <-watch:
		if !strings.HasPrefix(got, `?WATCH={"enable":true,"json":true,"nmea":true`) {
			t.Fatalf("watch=%q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timeout waiting for WATCH")
	}

	var tpv gpsd.TPV
	deadline := time.After(5 * time.Second)
	for tpv.Device == "" {
		select {
		case rec := <-records:
			if v, ok := rec.(gpsd.TPV); ok {
				tpv = v
			}
		case <-deadline:
			t.Fatalf("timeout waiting for TPV")
		}
	}
	if tpv.Mode != gpsd.Mode3D || tpv.Latitude != 46.5 || tpv.Longitude != 7.25 {
		t.Fatalf("tpv=%+v", tpv)
	}

	snap := c.Snapshot()
	if snap.State != "connected" {
		t.Fatalf("state=%q want connected", snap.State)
	}
	if snap.Router.Records != 2 || snap.Router.Sentences != 1 {
		t.Fatalf("router=%+v", snap.Router)
	}
	if snap.Lines < 2 || snap.LastSeenUTC == "" {
		t.Fatalf("snap=%+v", snap)
	}

	c.Close()
	if got := c.Snapshot().State; got != "stopped" {
		t.Fatalf("state after Close=%q want stopped", got)
	}
}
