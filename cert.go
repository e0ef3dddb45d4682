package storekit

import (
	"crypto/x509"
	"encoding/asn1"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// firstASN1Element returns the leading complete ASN.1 element of der, so a
// certificate can be split from any trailing auxiliary trust data.
func firstASN1Element(der []byte) ([]byte, bool) {
	input := cryptobyte.String(der)
	var elem cryptobyte.String
	var tag cryptobyte_asn1.Tag
	if !input.ReadAnyASN1Element(&elem, &tag) {
		return nil, false
	}
	return elem, true
}

// parseCertAux decodes the OpenSSL CertAux structure that trails a trusted
// certificate: SEQUENCE { trust SEQ OF OID OPT, reject [0] IMPLICIT SEQ OF
// OID OPT, alias UTF8String OPT, keyid OCTET STRING OPT, ... }.
func parseCertAux(der []byte) (*TrustMetadata, bool) {
	input := cryptobyte.String(der)
	var seq cryptobyte.String
	if !input.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) || len(input) != 0 {
		return nil, false
	}

	meta := &TrustMetadata{}

	readOIDs := func(container cryptobyte.String) ([]asn1.ObjectIdentifier, bool) {
		var oids []asn1.ObjectIdentifier
		for len(container) > 0 {
			var oid asn1.ObjectIdentifier
			if !container.ReadASN1ObjectIdentifier(&oid) {
				return nil, false
			}
			oids = append(oids, oid)
		}
		return oids, true
	}

	if seq.PeekASN1Tag(cryptobyte_asn1.SEQUENCE) {
		var trust cryptobyte.String
		if !seq.ReadASN1(&trust, cryptobyte_asn1.SEQUENCE) {
			return nil, false
		}
		oids, ok := readOIDs(trust)
		if !ok {
			return nil, false
		}
		meta.Trust = oids
	}
	if seq.PeekASN1Tag(cryptobyte_asn1.Tag(0).ContextSpecific().Constructed()) {
		var reject cryptobyte.String
		if !seq.ReadASN1(&reject, cryptobyte_asn1.Tag(0).ContextSpecific().Constructed()) {
			return nil, false
		}
		oids, ok := readOIDs(reject)
		if !ok {
			return nil, false
		}
		meta.Reject = oids
	}
	if seq.PeekASN1Tag(cryptobyte_asn1.UTF8String) {
		var alias cryptobyte.String
		if !seq.ReadASN1(&alias, cryptobyte_asn1.UTF8String) {
			return nil, false
		}
		meta.Alias = string(alias)
	}
	if seq.PeekASN1Tag(cryptobyte_asn1.OCTET_STRING) {
		var keyid cryptobyte.String
		if !seq.ReadASN1(&keyid, cryptobyte_asn1.OCTET_STRING) {
			return nil, false
		}
		meta.KeyID = keyid
	}
	// Remaining optional fields (other algorithms) are tolerated unparsed.
	return meta, true
}

// certificateHandler decodes X.509 certificates, including the trusted form
// that carries auxiliary trust metadata after the certificate. When the
// declared name specifically claims the trusted format, malformed auxiliary
// data is a mismatch; otherwise trailing bytes the aux parser rejects are
// ignored and the plain certificate is returned.
var certificateHandler = &fileHandler{
	name: "X509Certificate",
	tryDecode: func(l *Loader, blob *candidateBlob) (*decodeResult, error) {
		trustedOnly := false
		switch blob.name {
		case "":
		case "TRUSTED CERTIFICATE":
			trustedOnly = true
		case "CERTIFICATE", "X509 CERTIFICATE":
		default:
			return nil, nil
		}

		certDER, ok := firstASN1Element(blob.der)
		if !ok {
			return nil, nil
		}
		cert, err := x509.ParseCertificate(certDER)
		if err != nil {
			return nil, nil
		}

		info := &Info{Kind: KindCertificate, Certificate: cert}
		if aux := blob.der[len(certDER):]; len(aux) > 0 {
			meta, ok := parseCertAux(aux)
			if ok {
				info.Trust = meta
			} else if trustedOnly {
				return nil, nil
			}
		}
		return &decodeResult{info: info}, nil
	},
}

// crlHandler decodes X.509 certificate revocation lists, armored as
// "X509 CRL".
var crlHandler = &fileHandler{
	name: "X509CRL",
	tryDecode: func(l *Loader, blob *candidateBlob) (*decodeResult, error) {
		if blob.name != "" && blob.name != "X509 CRL" {
			return nil, nil
		}
		crl, err := x509.ParseRevocationList(blob.der)
		if err != nil {
			return nil, nil
		}
		return &decodeResult{info: &Info{Kind: KindCRL, CRL: crl}}, nil
	},
}
