package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ErrBodyTooLarge is returned when a request body outgrows its limit.
var ErrBodyTooLarge = errors.New("request body too large")

// bodyBuffer accumulates one request's body as it arrives in chunks.
// It belongs to a single request and is released when the handler returns.
type bodyBuffer struct {
	buf   bytes.Buffer
	limit int64
}

func (b *bodyBuffer) Write(chunk []byte) (int, error) {
	if int64(b.buf.Len())+int64(len(chunk)) > b.limit {
		return 0, ErrBodyTooLarge
	}
	return b.buf.Write(chunk)
}

// Bytes returns the accumulated body. It is only valid until release.
func (b *bodyBuffer) Bytes() []byte {
	return b.buf.Bytes()
}

func (b *bodyBuffer) release() {
	b.buf = bytes.Buffer{}
}

// readBody drains r into a fresh bodyBuffer. Failed growth is reported as
// ErrBodyTooLarge rather than a truncated body.
func readBody(r io.Reader, limit int64) (b *bodyBuffer, err error) {
	b = &bodyBuffer{limit: limit}
	if r == nil {
		return b, nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			if rec != bytes.ErrTooLarge {
				panic(rec)
			}
			b.release()
			b, err = nil, ErrBodyTooLarge
		}
	}()

	if _, err := io.Copy(b, r); err != nil {
		b.release()
		return nil, fmt.Errorf("read body: %w", err)
	}
	return b, nil
}
