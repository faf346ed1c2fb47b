package sink

import (
	"context"
	"fmt"
	"net"

	"gpsdjson/internal/gpsd"
)

// UDP sends one datagram per record.
type UDP struct {
	dest   string
	conn   *net.UDPConn
	format Format
}

func NewUDP(dest string, format Format) (*UDP, error) {
	addr, err := net.ResolveUDPAddr("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}

	// DialUDP selects a suitable local address automatically.
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}
	return &UDP{dest: dest, conn: conn, format: format}, nil
}

func (u *UDP) Publish(_ context.Context, rec gpsd.Record) error {
	b, err := Encode(u.format, rec)
	if err != nil {
		return err
	}
	_, err = u.conn.Write(b)
	return err
}

func (u *UDP) Close() error {
	if u.conn == nil {
		return nil
	}
	return u.conn.Close()
}
