package stream

import (
	"bufio"
	"context"
	"errors"
	"io"
)

// ReadLines routes every line from r until EOF or ctx ends. Decode errors
// are counted by the router and do not stop the loop; handler errors do.
func ReadLines(ctx context.Context, r io.Reader, router *Router) error {
	if router == nil {
		return errors.New("router is nil")
	}
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for s.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rec, err := router.Decode(s.Bytes())
		if err != nil || rec == nil {
			continue
		}
		if err := router.Deliver(rec); err != nil {
			return err
		}
	}
	if err := s.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return ctx.Err()
}
