package storekit

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"

	"github.com/youmark/pkcs8"
)

// looksLikeEncryptedPKCS8 reports whether der is an EncryptedPrivateKeyInfo:
// SEQUENCE { AlgorithmIdentifier, OCTET STRING }.
func looksLikeEncryptedPKCS8(der []byte) bool {
	var raw struct {
		Algo          pkix.AlgorithmIdentifier
		EncryptedData []byte
	}
	rest, err := asn1.Unmarshal(der, &raw)
	return err == nil && len(rest) == 0
}

// encryptedPKCS8Handler decrypts PKCS#8 EncryptedPrivateKeyInfo blobs,
// armored as "ENCRYPTED PRIVATE KEY". It does not produce a key directly:
// the decrypted PKCS#8 payload is handed back to the dispatcher as an
// embedded blob named "PRIVATE KEY", so the ordinary private-key handler
// decodes it like any other record.
var encryptedPKCS8Handler = &fileHandler{
	name: "PKCS8Encrypted",
	tryDecode: func(l *Loader, blob *candidateBlob) (*decodeResult, error) {
		if blob.name != "" && blob.name != "ENCRYPTED PRIVATE KEY" {
			return nil, nil
		}
		if !looksLikeEncryptedPKCS8(blob.der) {
			return nil, nil
		}

		pass, err := l.gw.acquire("encrypted private key")
		if err != nil {
			return nil, err
		}
		key, err := pkcs8.ParsePKCS8PrivateKey(blob.der, pass)
		if err != nil {
			return nil, nil
		}
		plain, err := x509.MarshalPKCS8PrivateKey(key)
		if err != nil {
			return nil, nil
		}

		return &decodeResult{info: &Info{
			Kind:         kindEmbedded,
			embeddedName: "PRIVATE KEY",
			embeddedDER:  plain,
		}}, nil
	},
}
