package logger

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"sync"
)

// sink is one output of the async writer. Records below min are skipped.
type sink struct {
	w   *bufio.Writer
	min slog.Level
}

type entry struct {
	level slog.Level
	line  []byte
}

// asyncWriter moves formatting output off the caller's goroutine and fans
// each line out to every sink whose level accepts it.
type asyncWriter struct {
	queue   chan entry
	flushes chan chan error
	done    chan struct{}
	closing sync.Once

	mu    sync.Mutex
	sinks []sink
	err   error
}

// leveledWriter pairs an output with the lowest level it receives.
type leveledWriter struct {
	w   io.Writer
	min slog.Level
}

func newAsyncWriter(outputs []leveledWriter, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	aw := &asyncWriter{
		queue:   make(chan entry, 256),
		flushes: make(chan chan error),
		done:    make(chan struct{}),
	}
	for _, o := range outputs {
		if o.w != nil {
			aw.sinks = append(aw.sinks, sink{w: bufio.NewWriterSize(o.w, bufSize), min: o.min})
		}
	}
	go aw.run()
	return aw
}

func (w *asyncWriter) run() {
	defer close(w.done)
	for {
		select {
		case e, ok := <-w.queue:
			if !ok {
				w.setErr(w.flush())
				return
			}
			w.setErr(w.write(e))
		case ack := <-w.flushes:
			ack <- w.flush()
		}
	}
}

// Write queues a copy of line. It blocks when the queue is full rather
// than dropping records.
func (w *asyncWriter) Write(level slog.Level, line []byte) error {
	if err := w.Err(); err != nil {
		return err
	}
	if len(line) == 0 {
		return nil
	}
	w.queue <- entry{level: level, line: append([]byte(nil), line...)}
	return nil
}

// Flush blocks until everything queued so far reached the sinks.
func (w *asyncWriter) Flush() error {
	ack := make(chan error, 1)
	select {
	case w.flushes <- ack:
		return errors.Join(<-ack, w.Err())
	case <-w.done:
		return w.Err()
	}
}

// Close drains the queue and returns the first write error seen.
func (w *asyncWriter) Close() error {
	w.closing.Do(func() { close(w.queue) })
	<-w.done
	return w.Err()
}

// Err returns the first write error seen.
func (w *asyncWriter) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *asyncWriter) write(e entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range w.sinks {
		if e.level < s.min {
			continue
		}
		if _, err := s.w.Write(e.line); err != nil {
			return err
		}
		if err := s.w.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (w *asyncWriter) flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var errs []error
	for _, s := range w.sinks {
		if err := s.w.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) setErr(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		w.err = err
	}
}
