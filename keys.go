package storekit

import (
	"crypto"
	"crypto/dsa" //nolint:staticcheck // legacy DSA keys remain loadable
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"
	"errors"
	"math/big"
	"strings"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
	"golang.org/x/crypto/ssh"
)

// keySuffix splits an armored type name of the form "<ALG> PRIVATE KEY" (or
// "<ALG> PARAMETERS") and returns the algorithm prefix. ok is false when the
// name does not carry the suffix at all.
func keySuffix(name, suffix string) (alg string, ok bool) {
	if name == suffix {
		return "", true
	}
	alg, found := strings.CutSuffix(name, " "+suffix)
	return alg, found
}

// normalizePrivateKey dereferences *ed25519.PrivateKey (as returned by
// ssh.ParseRawPrivateKey) so downstream type switches see one form.
func normalizePrivateKey(key crypto.PrivateKey) crypto.PrivateKey {
	if ptr, ok := key.(*ed25519.PrivateKey); ok {
		return *ptr
	}
	return key
}

// parseDSAPrivateKey decodes the OpenSSL DSAPrivateKey structure:
// SEQUENCE { version, p, q, g, pub, priv }.
func parseDSAPrivateKey(der []byte) (*dsa.PrivateKey, error) {
	var raw struct {
		Version int
		P, Q, G *big.Int
		Y, X    *big.Int
	}
	if _, err := asn1.Unmarshal(der, &raw); err != nil {
		return nil, err
	}
	return &dsa.PrivateKey{
		PublicKey: dsa.PublicKey{
			Parameters: dsa.Parameters{P: raw.P, Q: raw.Q, G: raw.G},
			Y:          raw.Y,
		},
		X: raw.X,
	}, nil
}

// decodePrivateKeyByAlgorithm decodes key material whose algorithm was
// declared by the armored type name.
func decodePrivateKeyByAlgorithm(alg string, der []byte) (crypto.PrivateKey, error) {
	switch alg {
	case "":
		return x509.ParsePKCS8PrivateKey(der)
	case "RSA":
		return x509.ParsePKCS1PrivateKey(der)
	case "EC":
		return x509.ParseECPrivateKey(der)
	case "DSA":
		return parseDSAPrivateKey(der)
	case "OPENSSH":
		// The OpenSSH parser wants the full armored text back.
		key, err := ssh.ParseRawPrivateKey(pem.EncodeToMemory(&pem.Block{
			Type:  "OPENSSH PRIVATE KEY",
			Bytes: der,
		}))
		if err != nil {
			return nil, err
		}
		return normalizePrivateKey(key), nil
	default:
		return nil, errUnknownAlgorithm
	}
}

var errUnknownAlgorithm = errors.New("unknown key algorithm")

// privateKeyHandler decodes private keys. A declared "<ALG> PRIVATE KEY"
// name selects the matching decoder; an unnamed blob is probed with every
// registered key-algorithm decoder in turn. Names with an unrecognized
// prefix (such as ENCRYPTED) are not a match here.
var privateKeyHandler = &fileHandler{
	name: "PrivateKey",
	tryDecode: func(l *Loader, blob *candidateBlob) (*decodeResult, error) {
		var key crypto.PrivateKey
		if blob.name != "" {
			alg, ok := keySuffix(blob.name, "PRIVATE KEY")
			if !ok || alg == "ENCRYPTED" {
				return nil, nil
			}
			k, err := decodePrivateKeyByAlgorithm(alg, blob.der)
			if err != nil {
				return nil, nil
			}
			key = k
		} else {
			for _, alg := range []string{"", "RSA", "EC", "DSA"} {
				if k, err := decodePrivateKeyByAlgorithm(alg, blob.der); err == nil {
					key = k
					break
				}
			}
			if key == nil {
				return nil, nil
			}
		}
		return &decodeResult{info: &Info{Kind: KindPrivateKey, PrivateKey: key}}, nil
	},
}

// publicKeyHandler decodes PKIX SubjectPublicKeyInfo public keys, armored as
// "PUBLIC KEY".
var publicKeyHandler = &fileHandler{
	name: "PUBKEY",
	tryDecode: func(l *Loader, blob *candidateBlob) (*decodeResult, error) {
		if blob.name != "" && blob.name != "PUBLIC KEY" {
			return nil, nil
		}
		pub, err := x509.ParsePKIXPublicKey(blob.der)
		if err != nil {
			return nil, nil
		}
		return &decodeResult{info: &Info{Kind: KindPublicKey, PublicKey: pub}}, nil
	},
}

// parseDSAParameters decodes Dss-Parms: SEQUENCE { p, q, g }. Like the
// d2i-style parsers this mirrors, elements after g inside the sequence are
// ignored rather than rejected; an unnamed DSA or RSA private key therefore
// also satisfies this parser, and the ambiguity policy discards both
// readings rather than picking one.
func parseDSAParameters(der []byte) (*dsa.Parameters, bool) {
	input := cryptobyte.String(der)
	var seq cryptobyte.String
	if !input.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) {
		return nil, false
	}
	p, q, g := new(big.Int), new(big.Int), new(big.Int)
	if !seq.ReadASN1Integer(p) || !seq.ReadASN1Integer(q) || !seq.ReadASN1Integer(g) {
		return nil, false
	}
	return &dsa.Parameters{P: p, Q: q, G: g}, true
}

// namedCurves maps the named-curve OIDs accepted in EC parameter blocks.
var namedCurves = map[string]elliptic.Curve{
	"1.2.840.10045.3.1.7": elliptic.P256(),
	"1.3.132.0.34":        elliptic.P384(),
	"1.3.132.0.35":        elliptic.P521(),
	"1.3.132.0.33":        elliptic.P224(),
}

// parseECParameters decodes the named-curve form of EC parameters: a bare
// OBJECT IDENTIFIER.
func parseECParameters(der []byte) (elliptic.Curve, bool) {
	var oid asn1.ObjectIdentifier
	rest, err := asn1.Unmarshal(der, &oid)
	if err != nil || len(rest) != 0 {
		return nil, false
	}
	curve, ok := namedCurves[oid.String()]
	return curve, ok
}

// paramsHandler decodes algorithm parameter sets, armored as
// "<ALG> PARAMETERS". Unnamed blobs are probed with every algorithm's
// parameter decoder in turn.
var paramsHandler = &fileHandler{
	name: "params",
	tryDecode: func(l *Loader, blob *candidateBlob) (*decodeResult, error) {
		if blob.name != "" {
			alg, ok := keySuffix(blob.name, "PARAMETERS")
			if !ok {
				return nil, nil
			}
			switch alg {
			case "DSA":
				if p, ok := parseDSAParameters(blob.der); ok {
					return &decodeResult{info: &Info{Kind: KindParameters, Parameters: &Parameters{Algorithm: "DSA", DSA: p}}}, nil
				}
			case "EC":
				if curve, ok := parseECParameters(blob.der); ok {
					return &decodeResult{info: &Info{Kind: KindParameters, Parameters: &Parameters{Algorithm: "EC", Curve: curve}}}, nil
				}
			}
			return nil, nil
		}

		if p, ok := parseDSAParameters(blob.der); ok {
			return &decodeResult{info: &Info{Kind: KindParameters, Parameters: &Parameters{Algorithm: "DSA", DSA: p}}}, nil
		}
		if curve, ok := parseECParameters(blob.der); ok {
			return &decodeResult{info: &Info{Kind: KindParameters, Parameters: &Parameters{Algorithm: "EC", Curve: curve}}}, nil
		}
		return nil, nil
	},
}
