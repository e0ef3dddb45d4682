package storekit

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// Loader reads typed cryptographic objects from a single file. It is not
// safe for concurrent use: it owns a stream cursor, a sticky error counter,
// and the iteration state of the most recent repeatable handler. Independent
// Loaders over distinct files are fully independent.
type Loader struct {
	file   *os.File
	reader *recordReader
	gw     passphraseGateway

	errcnt  int
	lastErr error

	// active is the repeatable handler currently being drained, if any.
	// At most one handler holds live iteration state at a time.
	active      *fileHandler
	activeState any
}

// Open resolves the locator (a bare path or file: URI), opens the file, and
// sniffs whether the content is armored text or raw binary. passphrase may
// be nil, in which case any encrypted content fails with a cancellation.
func Open(locator string, passphrase PassphraseFunc) (*Loader, error) {
	path, err := ResolveLocator(locator)
	if err != nil {
		return nil, fmt.Errorf("resolving locator %q: %w", locator, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	gw := passphraseGateway{fn: passphrase}
	l := &Loader{
		file: f,
		gw:   gw,
	}
	l.reader = newRecordReader(bufio.NewReaderSize(f, sniffSize), gw)
	return l, nil
}

// adopt installs a repeatable handler's iteration state, destroying any
// previously held state first so only one handler is ever live.
func (l *Loader) adopt(h *fileHandler, state any) {
	if l.active != nil && l.activeState != nil {
		l.active.destroy(l.activeState)
	}
	l.active = h
	l.activeState = state
}

func (l *Loader) teardownActive() {
	if l.active != nil {
		if l.activeState != nil {
			l.active.destroy(l.activeState)
		}
		l.active = nil
		l.activeState = nil
	}
}

// Load returns the next decoded object. At clean stream exhaustion it
// returns io.EOF. A repeatable handler adopted by an earlier Load is drained
// before any further records are read. Hard errors (malformed records,
// decryption failures, passphrase cancellation) are sticky: every later
// Load repeats them.
func (l *Loader) Load() (*Info, error) {
	if l.active != nil {
		if l.activeState != nil {
			if info := l.active.next(l.activeState); info != nil {
				if l.active.exhausted(l.activeState) {
					l.teardownActive()
				}
				return info, nil
			}
		}
		l.teardownActive()
	}

	if l.errcnt > 0 {
		return nil, l.lastErr
	}

	for {
		blob, err := l.reader.next()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if err != nil {
			l.fail(err)
			return nil, err
		}

		info, matches, err := l.dispatch(blob)
		if err != nil {
			if errors.Is(err, ErrAmbiguousContentType) {
				// Ambiguity fails this Load but does not poison the
				// Loader; the caller may still read further records.
				return nil, err
			}
			l.fail(err)
			return nil, err
		}
		if info != nil {
			return info, nil
		}
		if matches == 0 && l.reader.eof() {
			return nil, unsupportedError(blob)
		}
		// Unsupported blob mid-stream: skip it and try the next record.
	}
}

// fail records a hard error. HadError stays true for the Loader's lifetime.
func (l *Loader) fail(err error) {
	l.errcnt++
	l.lastErr = err
}

// AtEnd reports whether both the pending repeatable handler (if any) and the
// underlying stream are exhausted. It has no side effects.
func (l *Loader) AtEnd() bool {
	if l.active != nil && l.activeState != nil && !l.active.exhausted(l.activeState) {
		return false
	}
	return l.reader.eof()
}

// HadError reports whether any hard error has occurred. It never auto-clears.
func (l *Loader) HadError() bool {
	return l.errcnt > 0
}

// Close destroys any live handler iteration state and releases the file.
// The Loader must not be used afterwards.
func (l *Loader) Close() error {
	l.teardownActive()
	err := l.file.Close()
	l.file = nil
	l.reader = nil
	if err != nil {
		return fmt.Errorf("closing loader: %w", err)
	}
	return nil
}
