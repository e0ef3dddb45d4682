package storekit

import (
	"errors"

	gopkcs12 "software.sslmate.com/src/go-pkcs12"
)

// pkcs12Handler unpacks password-protected PKCS#12/PFX bundles. There is no
// PEM tag for PKCS#12, so only unnamed (binary) blobs are probed. The MAC is
// verified with the empty passphrase first; only if that is rejected is the
// gateway asked for one. A bundle yields its private key, then the leaf
// certificate, then each CA certificate, one per Load call.
var pkcs12Handler = &fileHandler{
	name:       "PKCS12",
	repeatable: true,
	next:       queueNext,
	exhausted:  queueExhausted,
	destroy:    queueDestroy,
	tryDecode: func(l *Loader, blob *candidateBlob) (*decodeResult, error) {
		if blob.name != "" {
			return nil, nil
		}

		key, leaf, chain, err := gopkcs12.DecodeChain(blob.der, "")
		if err != nil {
			if !errors.Is(err, gopkcs12.ErrIncorrectPassword) {
				// Not a PKCS#12 structure at all.
				return nil, nil
			}
			pass, perr := l.gw.acquire("PKCS12 import password")
			if perr != nil {
				return nil, perr
			}
			key, leaf, chain, err = gopkcs12.DecodeChain(blob.der, string(pass))
			if err != nil {
				// Wrong passphrase: the blob is recognizable but
				// unusable, reported as no match like any other
				// undecodable content.
				return nil, nil
			}
		}

		queue := make([]*Info, 0, 2+len(chain))
		queue = append(queue,
			&Info{Kind: KindPrivateKey, PrivateKey: key},
			&Info{Kind: KindCertificate, Certificate: leaf},
		)
		for _, ca := range chain {
			queue = append(queue, &Info{Kind: KindCertificate, Certificate: ca})
		}

		return &decodeResult{
			info:  queue[0],
			state: &objectQueue{items: queue[1:]},
		}, nil
	},
}
