package storekit

import (
	"fmt"
	"strings"
)

// decodeResult is a successful match: the first (or only) decoded object,
// plus private iteration state when the handler is repeatable and the blob
// holds more objects.
type decodeResult struct {
	info  *Info
	state any
}

// fileHandler is a static content-handler descriptor. tryDecode reports
// "not this type" by returning (nil, nil); errors are reserved for hard
// conditions (passphrase cancellation or failure) that must abort the whole
// dispatch. next, exhausted, and destroy are set only on repeatable handlers
// and operate on the opaque state produced by tryDecode.
type fileHandler struct {
	name       string
	tryDecode  func(l *Loader, blob *candidateBlob) (*decodeResult, error)
	next       func(state any) *Info
	exhausted  func(state any) bool
	destroy    func(state any)
	repeatable bool
}

// fileHandlers is the fixed, ordered registry. Registration order only
// affects diagnostics: ambiguity always discards every result.
var fileHandlers = []*fileHandler{
	pkcs12Handler,
	jksHandler,
	pkcs7Handler,
	certificateHandler,
	crlHandler,
	paramsHandler,
	publicKeyHandler,
	encryptedPKCS8Handler,
	privateKeyHandler,
}

// maxEmbeddedDepth caps the re-dispatch loop for embedded wrappers. Each
// unwrap must strictly shrink the blob, so the cap is only a backstop.
const maxEmbeddedDepth = 8

// objectQueue is the shared iteration state for repeatable handlers that
// unpack a container into a list up front.
type objectQueue struct {
	items []*Info
}

func queueNext(state any) *Info {
	q := state.(*objectQueue)
	if len(q.items) == 0 {
		return nil
	}
	info := q.items[0]
	q.items = q.items[1:]
	return info
}

func queueExhausted(state any) bool {
	q := state.(*objectQueue)
	return len(q.items) == 0
}

func queueDestroy(state any) {
	q := state.(*objectQueue)
	q.items = nil
}

// dispatch runs every registered handler over the blob, applies the
// ambiguity policy, adopts repeatable iteration state, and unwraps embedded
// results until a final object is produced. The returned match count lets
// the caller distinguish "nobody recognized it" from "a handler failed".
func (l *Loader) dispatch(blob *candidateBlob) (*Info, int, error) {
	for depth := 0; ; depth++ {
		var (
			result  *Info
			matched *fileHandler
			state   any
			matches int
		)

		for _, h := range fileHandlers {
			res, err := h.tryDecode(l, blob)
			if err != nil {
				if state != nil {
					matched.destroy(state)
				}
				return nil, matches, err
			}
			if res == nil {
				continue
			}
			matches++
			switch {
			case matches == 1:
				result = res.info
				matched = h
				state = res.state
			default:
				// Two competing interpretations of the same bytes:
				// never guess, drop everything produced so far.
				if state != nil {
					matched.destroy(state)
					state = nil
				}
				if res.state != nil {
					h.destroy(res.state)
				}
				result = nil
			}
		}

		if matches == 0 {
			return nil, 0, nil
		}
		if matches > 1 {
			return nil, matches, ErrAmbiguousContentType
		}

		if matched.repeatable {
			l.adopt(matched, state)
		}

		if result.Kind != kindEmbedded {
			return result, 1, nil
		}

		// Re-dispatch the inner blob. The unwrap must strictly consume
		// the outer layer, otherwise a misbehaving handler could echo
		// its input forever.
		if len(result.embeddedDER) >= len(blob.der) || depth+1 >= maxEmbeddedDepth {
			return nil, 1, fmt.Errorf("embedded blob does not shrink: %w", ErrMalformedRecord)
		}
		blob = &candidateBlob{name: result.embeddedName, der: result.embeddedDER}
	}
}

// unsupportedError builds the failure reported when no handler matched.
func unsupportedError(blob *candidateBlob) error {
	if blob.name != "" {
		return fmt.Errorf("%w: %q", ErrUnsupportedContentType, blob.name)
	}
	names := make([]string, 0, len(fileHandlers))
	for _, h := range fileHandlers {
		names = append(names, h.name)
	}
	return fmt.Errorf("%w: not %s", ErrUnsupportedContentType, strings.Join(names, ", "))
}
