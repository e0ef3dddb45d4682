package storekit

import (
	"bufio"
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"strings"
)

// sniffSize is how much of the stream is peeked at open time to decide
// between armored-text and raw-binary mode.
const sniffSize = 4096

var armorMarker = []byte("-----BEGIN ")

type recordMode int

const (
	modeRaw recordMode = iota
	modePEM
)

// candidateBlob is one undecoded unit extracted from the stream: the body
// bytes plus, in armored mode, the declared type name and headers.
type candidateBlob struct {
	name    string
	headers map[string]string
	der     []byte
}

// recordReader produces one candidate blob per call. In armored mode each
// PEM block is a record and legacy-encrypted blocks are decrypted in place;
// in raw mode the remainder of the stream is a single record.
type recordReader struct {
	mode   recordMode
	src    *bufio.Reader
	gw     passphraseGateway
	rest   []byte
	loaded bool
	done   bool
}

// newRecordReader sniffs the mode from a bounded prefix of src.
func newRecordReader(src *bufio.Reader, gw passphraseGateway) *recordReader {
	peek, _ := src.Peek(sniffSize)
	mode := modeRaw
	if bytes.Contains(peek, armorMarker) {
		mode = modePEM
	}
	return &recordReader{mode: mode, src: src, gw: gw}
}

// next returns the next candidate blob, io.EOF at stream exhaustion, or a
// hard error for malformed or undecryptable records.
func (r *recordReader) next() (*candidateBlob, error) {
	if !r.loaded {
		data, err := io.ReadAll(r.src)
		if err != nil {
			return nil, fmt.Errorf("reading stream: %w", err)
		}
		r.rest = data
		r.loaded = true
	}

	if r.mode == modeRaw {
		if r.done || len(r.rest) == 0 {
			return nil, io.EOF
		}
		r.done = true
		blob := &candidateBlob{der: r.rest}
		r.rest = nil
		return blob, nil
	}

	block, rest := pem.Decode(r.rest)
	r.rest = rest
	if block == nil {
		return nil, io.EOF
	}

	blob := &candidateBlob{name: block.Type, headers: block.Headers, der: block.Bytes}
	if strings.Contains(block.Headers["Proc-Type"], "ENCRYPTED") {
		//nolint:staticcheck // legacy RFC 1423 PEM encryption is exactly what this path exists for
		if !x509.IsEncryptedPEMBlock(block) {
			return nil, fmt.Errorf("encrypted block missing DEK-Info header: %w", ErrMalformedRecord)
		}
		pass, err := r.gw.acquire("armored block")
		if err != nil {
			return nil, err
		}
		//nolint:staticcheck // see above
		der, err := x509.DecryptPEMBlock(block, pass)
		if err != nil {
			return nil, fmt.Errorf("decrypting armored block: %w", ErrMalformedRecord)
		}
		blob.der = der
	}
	return blob, nil
}

// eof reports whether the stream has no further records. It never consumes
// record data.
func (r *recordReader) eof() bool {
	if !r.loaded {
		_, err := r.src.Peek(1)
		return err == io.EOF
	}
	if r.mode == modeRaw {
		return r.done || len(r.rest) == 0
	}
	block, _ := pem.Decode(r.rest)
	return block == nil
}
