package input

import (
	"bufio"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"go.viam.com/utils"
	"golang.org/x/term"

	"go.viam.com/rigview/logging"
)

// TerminalReader reads key presses on its own goroutine and publishes them as events.
// The goroutine ends when the input ends; Close restores the terminal and stops
// publishing but cannot interrupt a blocked read.
type TerminalReader struct {
	events  chan Event
	restore func() error
	logger  logging.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewTerminalReader reads keys from f, switching it to raw mode when it is a terminal so
// keys arrive without waiting for enter.
func NewTerminalReader(f *os.File, logger logging.Logger) (*TerminalReader, error) {
	restore := func() error { return nil }
	fd := int(f.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return nil, errors.Wrap(err, "switching terminal to raw mode")
		}
		restore = func() error { return term.Restore(fd, state) }
	} else {
		logger.Debug("input is not a terminal, keys are read line buffered")
	}
	tr := newReader(f, logger)
	tr.restore = restore
	return tr, nil
}

// NewReader reads keys from any reader, such as a pipe.
func NewReader(r io.Reader, logger logging.Logger) *TerminalReader {
	return newReader(r, logger)
}

func newReader(r io.Reader, logger logging.Logger) *TerminalReader {
	tr := &TerminalReader{
		events:  make(chan Event, 64),
		restore: func() error { return nil },
		logger:  logger,
		done:    make(chan struct{}),
	}
	utils.PanicCapturingGo(func() {
		tr.run(bufio.NewReader(r))
	})
	return tr
}

func (tr *TerminalReader) run(br *bufio.Reader) {
	defer close(tr.events)
	for {
		key, _, err := br.ReadRune()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				tr.logger.Debugw("stopped reading keys", "error", err)
			}
			return
		}
		if key == '\n' || key == '\r' {
			continue
		}
		select {
		case <-tr.done:
			return
		case tr.events <- NewKeyPress(key):
		}
	}
}

// Events delivers key presses; it is closed when the input ends.
func (tr *TerminalReader) Events() <-chan Event {
	return tr.events
}

// Close stops publishing and restores the terminal.
func (tr *TerminalReader) Close() error {
	var err error
	tr.closeOnce.Do(func() {
		close(tr.done)
		err = tr.restore()
	})
	return err
}
