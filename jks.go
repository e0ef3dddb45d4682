package storekit

import (
	"bytes"
	"crypto/x509"

	"github.com/pavlo-v-chernykh/keystore-go/v4"
)

// jksMagic is the Java keystore file signature.
var jksMagic = []byte{0xFE, 0xED, 0xFE, 0xED}

// jksHandler unpacks Java keystores. Like PKCS#12, JKS has no armored form,
// so only unnamed blobs carrying the keystore magic are probed. The store
// password protects an integrity digest, tried empty first and prompted
// otherwise; per Java convention the same password unlocks key entries.
// A keystore yields each private key (with its chain), then each trusted
// certificate, one object per Load call.
var jksHandler = &fileHandler{
	name:       "JKS",
	repeatable: true,
	next:       queueNext,
	exhausted:  queueExhausted,
	destroy:    queueDestroy,
	tryDecode: func(l *Loader, blob *candidateBlob) (*decodeResult, error) {
		if blob.name != "" || !bytes.HasPrefix(blob.der, jksMagic) {
			return nil, nil
		}

		password := []byte{}
		ks := keystore.New()
		if err := ks.Load(bytes.NewReader(blob.der), password); err != nil {
			pass, perr := l.gw.acquire("JKS import password")
			if perr != nil {
				return nil, perr
			}
			password = pass
			ks = keystore.New()
			if err := ks.Load(bytes.NewReader(blob.der), password); err != nil {
				return nil, nil
			}
		}

		var queue []*Info
		for _, alias := range ks.Aliases() {
			if !ks.IsPrivateKeyEntry(alias) {
				continue
			}
			entry, err := ks.GetPrivateKeyEntry(alias, password)
			if err != nil {
				continue
			}
			key, err := x509.ParsePKCS8PrivateKey(entry.PrivateKey)
			if err != nil {
				continue
			}
			queue = append(queue, &Info{Kind: KindPrivateKey, PrivateKey: key})
			for _, c := range entry.CertificateChain {
				cert, err := x509.ParseCertificate(c.Content)
				if err != nil {
					continue
				}
				queue = append(queue, &Info{Kind: KindCertificate, Certificate: cert})
			}
		}
		for _, alias := range ks.Aliases() {
			if !ks.IsTrustedCertificateEntry(alias) {
				continue
			}
			entry, err := ks.GetTrustedCertificateEntry(alias)
			if err != nil {
				continue
			}
			cert, err := x509.ParseCertificate(entry.Certificate.Content)
			if err != nil {
				continue
			}
			queue = append(queue, &Info{Kind: KindCertificate, Certificate: cert})
		}
		if len(queue) == 0 {
			return nil, nil
		}

		return &decodeResult{
			info:  queue[0],
			state: &objectQueue{items: queue[1:]},
		}, nil
	},
}
