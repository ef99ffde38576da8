package host

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrMalformed marks a line that could not be decoded. The caller should
// skip it and keep reading; only stream-level failures are terminal.
var ErrMalformed = errors.New("malformed rpc line")

// maxLineSize bounds a single RPC line. Chat payloads are small; a megabyte
// leaves generous headroom for roster responses.
const maxLineSize = 1 << 20

// Transport frames Messages as newline-delimited JSON over a reader/writer
// pair, normally the process's stdin and stdout. Reads are single-consumer;
// writes are safe for concurrent use.
type Transport struct {
	scanner *bufio.Scanner

	mu  sync.Mutex
	enc *json.Encoder
}

// NewTransport creates a transport over the given streams.
func NewTransport(r io.Reader, w io.Writer) *Transport {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Transport{
		scanner: scanner,
		enc:     json.NewEncoder(w),
	}
}

// Read returns the next message from the stream. Blank lines are skipped.
// Returns io.EOF when the host closes its end.
func (t *Transport) Read() (*Message, error) {
	for t.scanner.Scan() {
		line := t.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return &msg, nil
	}
	if err := t.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Write sends a message. json.Encoder appends the trailing newline.
func (t *Transport) Write(msg *Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enc.Encode(msg)
}
