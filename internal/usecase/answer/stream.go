package answer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragbot/internal/domain"
	"github.com/kailas-cloud/ragbot/internal/metrics"
)

// Stream is one answer, delivered fragment by fragment in generation order.
// It is finite and cannot be restarted. Next must be called from a single
// goroutine; Close may be called from any goroutine, any number of times.
type Stream struct {
	upstream domain.FragmentStream
	log      *zap.Logger
	span     trace.Span
	started  time.Time // request start, for the total elapsed time
	opened   time.Time // stream open, for the streaming stage duration

	done        atomic.Bool
	closed      atomic.Bool
	chars       atomic.Int64
	releaseOnce sync.Once
	releaseErr  error
	endOnce     sync.Once
}

func newStream(upstream domain.FragmentStream, log *zap.Logger, span trace.Span, started time.Time) *Stream {
	return &Stream{
		upstream: upstream,
		log:      log,
		span:     span,
		started:  started,
		opened:   time.Now(),
	}
}

// Next returns the next non-empty fragment. It returns io.EOF once the answer
// is complete and domain.ErrStreamClosed after Close or once the caller's
// context is canceled.
func (s *Stream) Next() (string, error) {
	for {
		if s.closed.Load() {
			return "", domain.ErrStreamClosed
		}
		if s.done.Load() {
			return "", io.EOF
		}

		frag, err := s.upstream.Recv()
		if s.closed.Load() {
			return "", domain.ErrStreamClosed
		}
		if errors.Is(err, io.EOF) {
			s.done.Store(true)
			s.finish(StageDone, nil)
			_ = s.release()
			return "", io.EOF
		}
		if errors.Is(err, context.Canceled) {
			// The caller went away; that is a close, not a generation failure.
			s.closed.Store(true)
			_ = s.release()
			s.finish(StageDone, nil)
			return "", fmt.Errorf("%w: %w", domain.ErrStreamClosed, err)
		}
		if err != nil {
			s.done.Store(true)
			err = fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
			s.finish(StageAborted, err)
			_ = s.release()
			return "", err
		}
		if frag == "" {
			continue
		}
		s.chars.Add(int64(utf8.RuneCountInString(frag)))
		return frag, nil
	}
}

// Close releases the upstream connection. Later Next calls return
// domain.ErrStreamClosed and nothing more is read or logged.
func (s *Stream) Close() error {
	s.closed.Store(true)
	err := s.release()
	s.finish(StageDone, nil)
	return err
}

func (s *Stream) release() error {
	s.releaseOnce.Do(func() {
		s.releaseErr = s.upstream.Close()
	})
	return s.releaseErr
}

func (s *Stream) finish(stage Stage, err error) {
	s.endOnce.Do(func() {
		metrics.PipelineStageDuration.WithLabelValues(string(StageStreaming)).Observe(time.Since(s.opened).Seconds())

		fields := []zap.Field{
			zap.String("stage", string(stage)),
			zap.Int64("chars", s.chars.Load()),
			zap.Int64("total_ms", time.Since(s.started).Milliseconds()),
			zap.Bool("closed_early", s.closed.Load() && !s.done.Load()),
		}
		if err != nil {
			s.span.RecordError(err)
			s.span.SetStatus(codes.Error, err.Error())
			s.log.Error("Stream aborted", append(fields, zap.Error(err))...)
		} else {
			s.log.Info("Stream end", fields...)
		}
		s.span.End()
	})
}
