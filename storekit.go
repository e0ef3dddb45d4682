// Package storekit loads typed cryptographic objects from files without the
// caller knowing in advance which encoding or object type is present. A file
// may be PEM-armored text or raw binary; it may hold a private key, a public
// key, a certificate, a CRL, an algorithm parameter set, or a multi-object
// container (PKCS#12, PKCS#7, JKS). The Loader sniffs the format, reads one
// candidate blob at a time, and dispatches it across a fixed set of content
// handlers, yielding one decoded object per Load call.
package storekit

import (
	"crypto"
	"crypto/dsa" //nolint:staticcheck // DSA keys and parameter sets are part of the supported legacy surface
	"crypto/elliptic"
	"crypto/x509"
	"encoding/asn1"
	"errors"
)

// Kind identifies the type of a decoded object.
type Kind int

const (
	// KindPrivateKey is a private key of any supported algorithm.
	KindPrivateKey Kind = iota + 1
	// KindPublicKey is a PKIX public key.
	KindPublicKey
	// KindCertificate is an X.509 certificate, possibly with trust metadata.
	KindCertificate
	// KindCRL is an X.509 certificate revocation list.
	KindCRL
	// KindParameters is an algorithm parameter set (DSA or EC).
	KindParameters
	// kindEmbedded marks an intermediate decode result whose payload is
	// itself an encoded blob requiring another dispatch pass. Never
	// surfaced to callers.
	kindEmbedded
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case KindPrivateKey:
		return "private key"
	case KindPublicKey:
		return "public key"
	case KindCertificate:
		return "certificate"
	case KindCRL:
		return "CRL"
	case KindParameters:
		return "parameters"
	case kindEmbedded:
		return "embedded"
	default:
		return "unknown"
	}
}

// TrustMetadata holds the auxiliary trust settings attached to a trusted
// certificate (the OpenSSL "TRUSTED CERTIFICATE" trailing CertAux data).
type TrustMetadata struct {
	// Trust lists the usage OIDs the certificate is trusted for.
	Trust []asn1.ObjectIdentifier
	// Reject lists the usage OIDs the certificate is explicitly rejected for.
	Reject []asn1.ObjectIdentifier
	// Alias is a friendly name, if present.
	Alias string
	// KeyID is an opaque key identifier, if present.
	KeyID []byte
}

// Parameters is a decoded algorithm parameter set.
type Parameters struct {
	// Algorithm is "DSA" or "EC".
	Algorithm string
	// DSA holds the domain parameters when Algorithm is "DSA".
	DSA *dsa.Parameters
	// Curve holds the named curve when Algorithm is "EC".
	Curve elliptic.Curve
}

// Info is one decoded object produced by a Load call. Exactly one of the
// payload fields corresponding to Kind is set.
type Info struct {
	Kind Kind

	PrivateKey  crypto.PrivateKey
	PublicKey   crypto.PublicKey
	Certificate *x509.Certificate
	// Trust is non-nil only for certificates decoded from the trusted
	// format with auxiliary data present.
	Trust      *TrustMetadata
	CRL        *x509.RevocationList
	Parameters *Parameters

	// embedded payload, used only while unwrapping inside the dispatcher.
	embeddedName string
	embeddedDER  []byte
}

// Sentinel errors reported by Open and Load. Use errors.Is to classify.
var (
	// ErrUnsupportedContentType means no content handler recognized a blob.
	ErrUnsupportedContentType = errors.New("unsupported content type")
	// ErrAmbiguousContentType means two or more handlers recognized the
	// same blob; all results are discarded rather than guessed between.
	ErrAmbiguousContentType = errors.New("ambiguous content type")
	// ErrMalformedRecord means a record could not be framed or decrypted.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrPassphraseCancelled means the user declined the passphrase prompt.
	ErrPassphraseCancelled = errors.New("passphrase prompt cancelled")
	// ErrPassphraseFailed means the passphrase source itself failed.
	ErrPassphraseFailed = errors.New("passphrase source failed")
	// ErrUnsupportedAuthority means a file: locator carried an authority
	// other than empty or "localhost".
	ErrUnsupportedAuthority = errors.New("URI authority unsupported")
	// ErrPathNotAbsolute means an explicit file: scheme carried a
	// relative path, which RFC 8089 forbids.
	ErrPathNotAbsolute = errors.New("path must be absolute")
)
