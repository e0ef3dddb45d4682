package internal

import (
	"crypto"
	"crypto/dsa" //nolint:staticcheck // summaries cover legacy DSA objects
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sensiblebit/storekit"
)

// Summary is one loaded object rendered for display.
type Summary struct {
	Kind        string   `json:"kind"`
	Subject     string   `json:"subject,omitempty"`
	Issuer      string   `json:"issuer,omitempty"`
	Serial      string   `json:"serial,omitempty"`
	NotBefore   string   `json:"not_before,omitempty"`
	NotAfter    string   `json:"not_after,omitempty"`
	KeyAlgo     string   `json:"key_algorithm,omitempty"`
	Fingerprint string   `json:"sha256_fingerprint,omitempty"`
	SKI         string   `json:"subject_key_id,omitempty"`
	Trusted     bool     `json:"trusted,omitempty"`
	TrustAlias  string   `json:"trust_alias,omitempty"`
	Revoked     int      `json:"revoked_entries,omitempty"`
	Parameters  string   `json:"parameters,omitempty"`
	Extra       []string `json:"extra,omitempty"`
}

// KeyAlgorithmName returns a human-readable name for a key's algorithm.
func KeyAlgorithmName(key any) string {
	switch key.(type) {
	case *rsa.PrivateKey, *rsa.PublicKey:
		return "RSA"
	case *ecdsa.PrivateKey, *ecdsa.PublicKey:
		return "ECDSA"
	case ed25519.PrivateKey, *ed25519.PrivateKey, ed25519.PublicKey, *ed25519.PublicKey:
		return "Ed25519"
	case *dsa.PrivateKey, *dsa.PublicKey:
		return "DSA"
	default:
		return "unknown"
	}
}

// CertFingerprint returns the SHA-256 fingerprint of a certificate as a
// lowercase hex string.
func CertFingerprint(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)
	return hex.EncodeToString(sum[:])
}

// ComputeSKI computes a Subject Key Identifier per RFC 7093 Method 1:
// SHA-256 of the subjectPublicKey BIT STRING, truncated to 160 bits.
func ComputeSKI(pub crypto.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshal PKIX: %w", err)
	}
	var spki struct {
		Algorithm asn1.RawValue
		PublicKey asn1.BitString
	}
	if _, err := asn1.Unmarshal(der, &spki); err != nil {
		return "", fmt.Errorf("parsing SubjectPublicKeyInfo: %w", err)
	}
	sum := sha256.Sum256(spki.PublicKey.Bytes)
	return hex.EncodeToString(sum[:20]), nil
}

// Summarize renders one loaded object for display or cataloging.
func Summarize(info *storekit.Info) Summary {
	switch info.Kind {
	case storekit.KindCertificate:
		cert := info.Certificate
		s := Summary{
			Kind:        info.Kind.String(),
			Subject:     cert.Subject.String(),
			Issuer:      cert.Issuer.String(),
			Serial:      cert.SerialNumber.String(),
			NotBefore:   cert.NotBefore.UTC().Format(time.RFC3339),
			NotAfter:    cert.NotAfter.UTC().Format(time.RFC3339),
			KeyAlgo:     KeyAlgorithmName(cert.PublicKey),
			Fingerprint: CertFingerprint(cert),
		}
		if ski, err := ComputeSKI(cert.PublicKey); err == nil {
			s.SKI = ski
		}
		if info.Trust != nil {
			s.Trusted = true
			s.TrustAlias = info.Trust.Alias
			for _, oid := range info.Trust.Trust {
				s.Extra = append(s.Extra, "trust:"+oid.String())
			}
			for _, oid := range info.Trust.Reject {
				s.Extra = append(s.Extra, "reject:"+oid.String())
			}
		}
		return s
	case storekit.KindPrivateKey:
		s := Summary{Kind: info.Kind.String(), KeyAlgo: KeyAlgorithmName(info.PrivateKey)}
		if signer, ok := info.PrivateKey.(crypto.Signer); ok {
			if ski, err := ComputeSKI(signer.Public()); err == nil {
				s.SKI = ski
			}
		}
		return s
	case storekit.KindPublicKey:
		s := Summary{Kind: info.Kind.String(), KeyAlgo: KeyAlgorithmName(info.PublicKey)}
		if ski, err := ComputeSKI(info.PublicKey); err == nil {
			s.SKI = ski
		}
		return s
	case storekit.KindCRL:
		crl := info.CRL
		return Summary{
			Kind:      info.Kind.String(),
			Issuer:    crl.Issuer.String(),
			NotAfter:  crl.NextUpdate.UTC().Format(time.RFC3339),
			NotBefore: crl.ThisUpdate.UTC().Format(time.RFC3339),
			Revoked:   len(crl.RevokedCertificateEntries),
		}
	case storekit.KindParameters:
		p := info.Parameters
		s := Summary{Kind: info.Kind.String(), Parameters: p.Algorithm}
		if p.Curve != nil {
			s.Parameters = fmt.Sprintf("EC %s", p.Curve.Params().Name)
		} else if p.DSA != nil {
			s.Parameters = fmt.Sprintf("DSA %d-bit", p.DSA.P.BitLen())
		}
		return s
	default:
		return Summary{Kind: info.Kind.String()}
	}
}

// FormatSummaries renders summaries as human text or JSON.
func FormatSummaries(summaries []Summary, format string) (string, error) {
	switch format {
	case "json":
		out, err := json.MarshalIndent(summaries, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding summaries: %w", err)
		}
		return string(out) + "\n", nil
	case "text":
		var b strings.Builder
		for i, s := range summaries {
			fmt.Fprintf(&b, "[%d] %s", i+1, s.Kind)
			if s.Trusted {
				b.WriteString(" (trusted)")
			}
			b.WriteString("\n")
			writeField(&b, "Subject", s.Subject)
			writeField(&b, "Issuer", s.Issuer)
			writeField(&b, "Serial", s.Serial)
			writeField(&b, "Not Before", s.NotBefore)
			writeField(&b, "Not After", s.NotAfter)
			writeField(&b, "Key Algorithm", s.KeyAlgo)
			writeField(&b, "SHA-256", s.Fingerprint)
			writeField(&b, "SKI", s.SKI)
			writeField(&b, "Trust Alias", s.TrustAlias)
			writeField(&b, "Parameters", s.Parameters)
			if s.Revoked > 0 {
				fmt.Fprintf(&b, "    Revoked Entries: %d\n", s.Revoked)
			}
			for _, e := range s.Extra {
				writeField(&b, "Aux", e)
			}
		}
		return b.String(), nil
	default:
		return "", fmt.Errorf("unknown output format %q", format)
	}
}

func writeField(b *strings.Builder, name, value string) {
	if value != "" {
		fmt.Fprintf(b, "    %s: %s\n", name, value)
	}
}
