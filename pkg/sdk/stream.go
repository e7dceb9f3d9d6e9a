package ragbot

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"unicode/utf8"
)

const readChunk = 4 << 10

// AnswerStream is one streamed answer. Next must be called from a single
// goroutine; Close may be called from any goroutine, any number of times.
type AnswerStream struct {
	body    io.ReadCloser
	meta    AnswerMeta
	onFirst func()

	buf     []byte
	pending []byte // trailing bytes of a rune split across reads
	seen    bool
	done    bool

	mu     sync.Mutex
	closed bool
}

func newAnswerStream(body io.ReadCloser, meta AnswerMeta, onFirst func()) *AnswerStream {
	return &AnswerStream{body: body, meta: meta, onFirst: onFirst, buf: make([]byte, readChunk)}
}

// Meta returns the answer metadata sent with the response headers.
func (s *AnswerStream) Meta() AnswerMeta { return s.meta }

// Next returns the next piece of the answer. Fragments never split a UTF-8
// character. It returns io.EOF at the end and ErrStreamClosed after Close.
func (s *AnswerStream) Next() (string, error) {
	for {
		if s.isClosed() {
			return "", ErrStreamClosed
		}
		if s.done {
			return "", io.EOF
		}

		n, err := s.body.Read(s.buf)
		if n > 0 {
			if frag := s.take(s.buf[:n]); frag != "" {
				if !s.seen {
					s.seen = true
					if s.onFirst != nil {
						s.onFirst()
					}
				}
				return frag, nil
			}
		}

		switch {
		case err == nil:
			continue
		case errors.Is(err, io.EOF):
			s.done = true
			if len(s.pending) > 0 {
				// Truncated rune at the end of the body; hand it over as is.
				frag := string(s.pending)
				s.pending = nil
				return frag, nil
			}
			return "", io.EOF
		case s.isClosed():
			return "", ErrStreamClosed
		default:
			s.done = true
			return "", fmt.Errorf("ragbot: read answer: %w", err)
		}
	}
}

// take joins p with any pending bytes and returns the longest prefix made of
// complete runes, keeping the rest for the next read.
func (s *AnswerStream) take(p []byte) string {
	data := append(s.pending, p...)
	cut := len(data)
	// A rune is at most 4 bytes, so only the tail can be incomplete.
	for i := len(data) - 1; i >= 0 && i >= len(data)-utf8.UTFMax; i-- {
		if utf8.RuneStart(data[i]) {
			if !utf8.FullRune(data[i:]) {
				cut = i
			}
			break
		}
	}
	s.pending = append([]byte(nil), data[cut:]...)
	return string(data[:cut])
}

// Close releases the connection. Safe to call more than once.
func (s *AnswerStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.body.Close(); err != nil {
		return fmt.Errorf("ragbot: close answer: %w", err)
	}
	return nil
}

func (s *AnswerStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
