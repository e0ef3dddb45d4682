package storekit

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// maxPassphraseSize bounds the secrets accepted from any passphrase source.
const maxPassphraseSize = 1024

// PassphraseFunc supplies a secret for the given prompt. Implementations
// return ErrPassphraseCancelled (possibly wrapped) when the user declines,
// and ErrPassphraseFailed when the source itself breaks. No retry is
// performed by the Loader; each encrypted item asks exactly once.
type PassphraseFunc func(prompt string) ([]byte, error)

// StaticPassphrase returns a source that always yields the same secret.
func StaticPassphrase(secret string) PassphraseFunc {
	return func(string) ([]byte, error) {
		return []byte(secret), nil
	}
}

// TerminalPassphrase returns a source that prompts on the terminal with echo
// disabled. If stdin is not a terminal the source reports cancellation, so
// non-interactive runs fail cleanly instead of hanging.
func TerminalPassphrase() PassphraseFunc {
	return func(prompt string) ([]byte, error) {
		fd := os.Stdin.Fd()
		if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
			return nil, fmt.Errorf("stdin is not a terminal: %w", ErrPassphraseCancelled)
		}
		fmt.Fprintf(os.Stderr, "Enter pass phrase for %s: ", prompt)
		secret, err := term.ReadPassword(int(fd))
		fmt.Fprintln(os.Stderr)
		if errors.Is(err, io.EOF) {
			return nil, ErrPassphraseCancelled
		}
		if err != nil {
			return nil, fmt.Errorf("reading passphrase: %w", ErrPassphraseFailed)
		}
		return secret, nil
	}
}

// passphraseGateway wraps the configured source with a uniform size bound.
// A Loader with no source behaves as if every prompt were cancelled.
type passphraseGateway struct {
	fn PassphraseFunc
}

func (g passphraseGateway) acquire(prompt string) ([]byte, error) {
	if g.fn == nil {
		return nil, fmt.Errorf("no passphrase source configured: %w", ErrPassphraseCancelled)
	}
	secret, err := g.fn(prompt)
	if err != nil {
		if errors.Is(err, ErrPassphraseCancelled) || errors.Is(err, ErrPassphraseFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%v: %w", err, ErrPassphraseFailed)
	}
	if len(secret) > maxPassphraseSize {
		return nil, fmt.Errorf("passphrase exceeds %d bytes: %w", maxPassphraseSize, ErrPassphraseFailed)
	}
	return secret, nil
}
