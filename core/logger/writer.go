package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

// asyncWriter serializes log lines onto a single goroutine that fans them out
// to buffered sinks. Lines are never dropped: a full queue blocks the caller.
type asyncWriter struct {
	lines   chan []byte
	flushes chan chan error
	stopped chan struct{}
	closing sync.Once

	mu    sync.Mutex
	sinks []*bufio.Writer
	err   error
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	w := &asyncWriter{
		lines:   make(chan []byte, 256),
		flushes: make(chan chan error),
		stopped: make(chan struct{}),
	}
	for _, out := range writers {
		if out != nil {
			w.sinks = append(w.sinks, bufio.NewWriterSize(out, bufSize))
		}
	}
	go w.run()
	return w
}

func (w *asyncWriter) run() {
	defer close(w.stopped)
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				w.setErr(w.flushSinks())
				return
			}
			w.setErr(w.writeLine(line))
		case ack := <-w.flushes:
			ack <- w.flushSinks()
		}
	}
}

// Write enqueues a copy of p for the background goroutine.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.firstErr(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	w.lines <- append([]byte(nil), p...)
	return nil
}

// Flush waits until every queued line reached the sinks.
func (w *asyncWriter) Flush() error {
	if err := w.firstErr(); err != nil {
		return err
	}
	ack := make(chan error, 1)
	select {
	case w.flushes <- ack:
		return <-ack
	case <-w.stopped:
		return w.firstErr()
	}
}

// Close drains the queue and reports the first encountered write error.
func (w *asyncWriter) Close() error {
	w.closing.Do(func() { close(w.lines) })
	<-w.stopped
	return w.firstErr()
}

func (w *asyncWriter) writeLine(p []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, sink := range w.sinks {
		if _, err := sink.Write(p); err != nil {
			return err
		}
		if err := sink.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (w *asyncWriter) flushSinks() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var errs []error
	for _, sink := range w.sinks {
		if err := sink.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) firstErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
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
