// Package jsonl reads and writes line-delimited JSON files.
package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

const maxLineSize = 64 << 20

// Scan calls fn for every non-blank line of r with its 1-based line number.
// The slice passed to fn is only valid for the duration of the call.
func Scan(r io.Reader, fn func(line int, raw []byte) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		if err := fn(line, raw); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading line %d: %w", line+1, err)
	}
	return nil
}

// Decode unmarshals every line of r into a T.
func Decode[T any](r io.Reader) ([]T, error) {
	var out []T
	err := Scan(r, func(line int, raw []byte) error {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("decoding line %d: %w", line, err)
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

// Read decodes the file at path.
func Read[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	out, err := Decode[T](f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// Writer encodes one value per line.
type Writer struct {
	closer io.Closer
	buf    *bufio.Writer
	enc    *json.Encoder
	closed bool
}

func NewWriter(w io.Writer) *Writer {
	buf := bufio.NewWriter(w)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &Writer{buf: buf, enc: enc}
}

// Create truncates or creates path and returns a Writer for it.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	w := NewWriter(f)
	w.closer = f
	return w, nil
}

func (w *Writer) Write(v any) error {
	return w.enc.Encode(v)
}

func (w *Writer) Flush() error {
	return w.buf.Flush()
}

// Close flushes buffered lines and closes the underlying file, if any.
// Calls after the first return nil.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.buf.Flush(); err != nil {
		if w.closer != nil {
			w.closer.Close()
		}
		return err
	}
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}
