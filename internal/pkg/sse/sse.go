// Package sse writes and parses text/event-stream frames.
package sse

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Frame is a single server-sent event.
type Frame struct {
	ID    string
	Event string
	Data  []byte
}

// Writer writes frames to a streaming HTTP response, flushing after each one.
type Writer struct {
	w  io.Writer
	rc http.Flusher
}

// NewWriter sets the event-stream headers and returns a Writer.
// It fails when the response cannot be flushed incrementally.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	rc, ok := w.(http.Flusher)
	if !ok {
		return nil, status.Error(codes.Internal, "streaming unsupported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// Disable compression for SSE
	w.Header().Del("Content-Encoding")
	w.Header().Del("Transfer-Encoding")

	return &Writer{w: w, rc: rc}, nil
}

// WriteFrame writes one frame. Multi-line data is split over several data fields.
func (sw *Writer) WriteFrame(f Frame) error {
	var buf bytes.Buffer
	if f.ID != "" {
		fmt.Fprintf(&buf, "id: %s\n", f.ID)
	}
	if f.Event != "" {
		fmt.Fprintf(&buf, "event: %s\n", f.Event)
	}
	for _, line := range bytes.Split(f.Data, []byte("\n")) {
		buf.WriteString("data: ")
		buf.Write(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')

	if _, err := sw.w.Write(buf.Bytes()); err != nil {
		return err
	}
	sw.rc.Flush()
	return nil
}

// WriteComment writes a comment line, used as keepalive.
func (sw *Writer) WriteComment(text string) error {
	if _, err := fmt.Fprintf(sw.w, ": %s\n\n", text); err != nil {
		return err
	}
	sw.rc.Flush()
	return nil
}

// Reader parses frames from an event stream.
type Reader struct {
	sc *bufio.Scanner
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Reader{sc: sc}
}

// Next returns the next frame, skipping comments. It returns io.EOF at the end of the stream.
func (sr *Reader) Next() (*Frame, error) {
	var (
		f       Frame
		data    [][]byte
		hasData bool
		hasAny  bool
	)

	for sr.sc.Scan() {
		line := sr.sc.Text()
		if line == "" {
			if !hasAny {
				continue
			}
			if hasData {
				f.Data = bytes.Join(data, []byte("\n"))
			}
			return &f, nil
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		hasAny = true

		switch field {
		case "id":
			f.ID = value
		case "event":
			f.Event = value
		case "data":
			hasData = true
			data = append(data, []byte(value))
		}
	}

	if err := sr.sc.Err(); err != nil {
		return nil, err
	}

	if hasAny {
		if hasData {
			f.Data = bytes.Join(data, []byte("\n"))
		}
		return &f, nil
	}

	return nil, io.EOF
}
