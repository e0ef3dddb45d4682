package storekit

import (
	"crypto/rand"
	"crypto/x509"
	"encoding/asn1"
	"errors"
	"io"
	"math/big"
	"testing"
	"time"

	gopkcs12 "software.sslmate.com/src/go-pkcs12"
)

// loadOne asserts that the file yields exactly one object of the given kind
// followed by clean exhaustion.
func loadOne(t *testing.T, path, passphrase string, want Kind) *Info {
	t.Helper()
	l := openTestLoader(t, path, passphrase)

	info, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if info.Kind != want {
		t.Fatalf("Load kind = %v, want %v", info.Kind, want)
	}

	if _, err := l.Load(); !errors.Is(err, io.EOF) {
		t.Fatalf("second Load = %v, want io.EOF", err)
	}
	if !l.AtEnd() {
		t.Fatal("AtEnd = false after exhaustion")
	}
	if l.HadError() {
		t.Fatal("HadError = true after clean loads")
	}
	return info
}

func TestLoadSingleObjects(t *testing.T) {
	t.Parallel()

	ca, caKey := generateTestCA(t)
	leaf, leafKey := generateTestLeaf(t, ca, caKey)

	keyDER, err := x509.MarshalPKCS8PrivateKey(leafKey)
	if err != nil {
		t.Fatal(err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&leafKey.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	crlDER, err := x509.CreateRevocationList(rand.Reader, &x509.RevocationList{
		Number:     big.NewInt(7),
		ThisUpdate: time.Now().Add(-time.Hour),
		NextUpdate: time.Now().Add(24 * time.Hour),
	}, ca, caKey)
	if err != nil {
		t.Fatal(err)
	}
	dsaParamsDER, err := asn1.Marshal(struct{ P, Q, G *big.Int }{
		P: big.NewInt(7919), Q: big.NewInt(4409), G: big.NewInt(2),
	})
	if err != nil {
		t.Fatal(err)
	}
	// prime256v1 named curve
	ecParamsDER, err := asn1.Marshal(asn1.ObjectIdentifier{1, 2, 840, 10045, 3, 1, 7})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		data []byte
		want Kind
	}{
		{"armored_certificate", pemEncode("CERTIFICATE", leaf.Raw), KindCertificate},
		{"raw_certificate", leaf.Raw, KindCertificate},
		{"armored_pkcs8_key", pemEncode("PRIVATE KEY", keyDER), KindPrivateKey},
		{"raw_pkcs8_key", keyDER, KindPrivateKey},
		{"armored_public_key", pemEncode("PUBLIC KEY", pubDER), KindPublicKey},
		{"raw_public_key", pubDER, KindPublicKey},
		{"armored_crl", pemEncode("X509 CRL", crlDER), KindCRL},
		{"raw_crl", crlDER, KindCRL},
		{"armored_dsa_params", pemEncode("DSA PARAMETERS", dsaParamsDER), KindParameters},
		{"armored_ec_params", pemEncode("EC PARAMETERS", ecParamsDER), KindParameters},
		{"raw_ec_params", ecParamsDER, KindParameters},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := writeTempFile(t, "object.bin", tt.data)
			loadOne(t, path, "", tt.want)
		})
	}
}

func TestLoadArmoredMultiRecord(t *testing.T) {
	t.Parallel()

	ca, caKey := generateTestCA(t)
	leaf, leafKey := generateTestLeaf(t, ca, caKey)
	keyDER, err := x509.MarshalECPrivateKey(leafKey)
	if err != nil {
		t.Fatal(err)
	}

	var data []byte
	data = append(data, pemEncode("CERTIFICATE", leaf.Raw)...)
	data = append(data, pemEncode("EC PRIVATE KEY", keyDER)...)
	data = append(data, pemEncode("CERTIFICATE", ca.Raw)...)
	path := writeTempFile(t, "chain.pem", data)

	l := openTestLoader(t, path, "")
	wantKinds := []Kind{KindCertificate, KindPrivateKey, KindCertificate}
	for i, want := range wantKinds {
		info, err := l.Load()
		if err != nil {
			t.Fatalf("Load %d: %v", i, err)
		}
		if info.Kind != want {
			t.Fatalf("Load %d kind = %v, want %v", i, info.Kind, want)
		}
	}
	if _, err := l.Load(); !errors.Is(err, io.EOF) {
		t.Fatalf("final Load = %v, want io.EOF", err)
	}
}

func TestLoadSkipsUnsupportedArmoredRecords(t *testing.T) {
	// An unrecognized record mid-stream is skipped; the loader moves on to
	// the next record instead of failing.
	t.Parallel()

	ca, caKey := generateTestCA(t)
	leaf, _ := generateTestLeaf(t, ca, caKey)

	var data []byte
	data = append(data, pemEncode("MESSAGE", []byte("not a crypto object"))...)
	data = append(data, pemEncode("CERTIFICATE", leaf.Raw)...)
	path := writeTempFile(t, "mixed.pem", data)

	l := openTestLoader(t, path, "")
	info, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if info.Kind != KindCertificate {
		t.Fatalf("kind = %v, want certificate", info.Kind)
	}
	if l.HadError() {
		t.Fatal("HadError = true after skipping unsupported record")
	}
}

func TestLoadUnsupportedContent(t *testing.T) {
	t.Parallel()

	path := writeTempFile(t, "junk.bin", []byte{0x02, 0x01, 0x05}) // bare INTEGER
	l := openTestLoader(t, path, "")

	_, err := l.Load()
	if !errors.Is(err, ErrUnsupportedContentType) {
		t.Fatalf("Load = %v, want ErrUnsupportedContentType", err)
	}
	if l.HadError() {
		t.Fatal("unsupported content must not mark the loader errored")
	}
	if _, err := l.Load(); !errors.Is(err, io.EOF) {
		t.Fatalf("Load after unsupported = %v, want io.EOF", err)
	}
}

func TestLoadAmbiguousContent(t *testing.T) {
	// A raw PKCS#1 RSA key also satisfies the d2i-style DSA parameters
	// parser, so two handlers match and the conservative policy discards
	// both readings instead of guessing.
	t.Parallel()

	keyDER := rsaPKCS1Fixture(t)
	path := writeTempFile(t, "ambiguous.der", keyDER)
	l := openTestLoader(t, path, "")

	info, err := l.Load()
	if !errors.Is(err, ErrAmbiguousContentType) {
		t.Fatalf("Load = %v, want ErrAmbiguousContentType", err)
	}
	if info != nil {
		t.Fatal("ambiguous load must not return an object")
	}
	if l.HadError() {
		t.Fatal("ambiguity must not mark the loader errored")
	}
	if l.active != nil || l.activeState != nil {
		t.Fatal("ambiguity leaked handler iteration state")
	}
}

func TestLoadStatusCallsAreIdempotent(t *testing.T) {
	t.Parallel()

	ca, caKey := generateTestCA(t)
	leaf, _ := generateTestLeaf(t, ca, caKey)
	path := writeTempFile(t, "cert.pem", pemEncode("CERTIFICATE", leaf.Raw))

	l := openTestLoader(t, path, "")
	for i := 0; i < 3; i++ {
		if l.AtEnd() {
			t.Fatalf("AtEnd = true before any Load (call %d)", i)
		}
		if l.HadError() {
			t.Fatalf("HadError = true before any Load (call %d)", i)
		}
	}

	if _, err := l.Load(); err != nil {
		t.Fatalf("Load after repeated status calls: %v", err)
	}
	for i := 0; i < 3; i++ {
		if !l.AtEnd() {
			t.Fatalf("AtEnd = false after draining (call %d)", i)
		}
	}
}

func TestLoadPKCS12Bundle(t *testing.T) {
	t.Parallel()

	ca, caKey := generateTestCA(t)
	leaf, leafKey := generateTestLeaf(t, ca, caKey)

	pfx, err := gopkcs12.Modern.Encode(leafKey, leaf, []*x509.Certificate{ca}, "bundlepass")
	if err != nil {
		t.Fatal(err)
	}
	path := writeTempFile(t, "bundle.p12", pfx)

	l := openTestLoader(t, path, "bundlepass")
	wantKinds := []Kind{KindPrivateKey, KindCertificate, KindCertificate}
	for i, want := range wantKinds {
		if l.AtEnd() {
			t.Fatalf("AtEnd = true with %d bundle objects pending", len(wantKinds)-i)
		}
		info, err := l.Load()
		if err != nil {
			t.Fatalf("Load %d: %v", i, err)
		}
		if info.Kind != want {
			t.Fatalf("Load %d kind = %v, want %v", i, info.Kind, want)
		}
	}
	if _, err := l.Load(); !errors.Is(err, io.EOF) {
		t.Fatalf("Load after bundle = %v, want io.EOF", err)
	}
	if !l.AtEnd() {
		t.Fatal("AtEnd = false after bundle exhaustion")
	}

	key, ok := l2Key(t, path)
	if !ok || key == nil {
		t.Fatal("bundle reload sanity check failed")
	}
}

// l2Key reopens a bundle and pulls just the key, proving a fresh Loader is
// independent of the drained one.
func l2Key(t *testing.T, path string) (*Info, bool) {
	t.Helper()
	l := openTestLoader(t, path, "bundlepass")
	info, err := l.Load()
	if err != nil {
		return nil, false
	}
	return info, info.Kind == KindPrivateKey
}

func TestClosePKCS12MidIteration(t *testing.T) {
	// Closing while the bundle still holds queued objects must tear down
	// the handler's iteration state.
	t.Parallel()

	ca, caKey := generateTestCA(t)
	leaf, leafKey := generateTestLeaf(t, ca, caKey)
	pfx, err := gopkcs12.Modern.Encode(leafKey, leaf, []*x509.Certificate{ca}, "bundlepass")
	if err != nil {
		t.Fatal(err)
	}
	path := writeTempFile(t, "bundle.p12", pfx)

	l, err := Open(path, StaticPassphrase("bundlepass"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.Load(); err != nil {
		t.Fatal(err)
	}
	if l.active == nil {
		t.Fatal("no sticky handler after first bundle object")
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if l.active != nil || l.activeState != nil {
		t.Fatal("Close leaked handler iteration state")
	}
}

func TestLoadPKCS12WrongPassphrase(t *testing.T) {
	t.Parallel()

	ca, caKey := generateTestCA(t)
	leaf, leafKey := generateTestLeaf(t, ca, caKey)
	pfx, err := gopkcs12.Modern.Encode(leafKey, leaf, nil, "rightpass")
	if err != nil {
		t.Fatal(err)
	}
	path := writeTempFile(t, "bundle.p12", pfx)

	l := openTestLoader(t, path, "wrongpass")
	if _, err := l.Load(); !errors.Is(err, ErrUnsupportedContentType) {
		t.Fatalf("Load = %v, want ErrUnsupportedContentType for undecodable bundle", err)
	}
}

func TestLoadPKCS12CancelledPassphrase(t *testing.T) {
	t.Parallel()

	ca, caKey := generateTestCA(t)
	leaf, leafKey := generateTestLeaf(t, ca, caKey)
	pfx, err := gopkcs12.Modern.Encode(leafKey, leaf, nil, "secret")
	if err != nil {
		t.Fatal(err)
	}
	path := writeTempFile(t, "bundle.p12", pfx)

	l, err := Open(path, cancelledPassphrase)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	if _, err := l.Load(); !errors.Is(err, ErrPassphraseCancelled) {
		t.Fatalf("Load = %v, want ErrPassphraseCancelled", err)
	}
}

func TestLoadTrustedCertificate(t *testing.T) {
	t.Parallel()

	ca, caKey := generateTestCA(t)
	leaf, _ := generateTestLeaf(t, ca, caKey)

	aux, err := asn1.Marshal(struct {
		Trust []asn1.ObjectIdentifier
		Alias string `asn1:"utf8"`
	}{
		Trust: []asn1.ObjectIdentifier{{1, 3, 6, 1, 5, 5, 7, 3, 1}},
		Alias: "my server",
	})
	if err != nil {
		t.Fatal(err)
	}
	data := append(append([]byte{}, leaf.Raw...), aux...)
	path := writeTempFile(t, "trusted.pem", pemEncode("TRUSTED CERTIFICATE", data))

	info := loadOne(t, path, "", KindCertificate)
	if info.Trust == nil {
		t.Fatal("trusted certificate lost its trust metadata")
	}
	if info.Trust.Alias != "my server" {
		t.Fatalf("alias = %q, want %q", info.Trust.Alias, "my server")
	}
	if len(info.Trust.Trust) != 1 || info.Trust.Trust[0].String() != "1.3.6.1.5.5.7.3.1" {
		t.Fatalf("trust OIDs = %v", info.Trust.Trust)
	}

	// A plain CERTIFICATE block of the same bytes still decodes, ignoring
	// nothing: the aux data rides along as metadata.
	plainPath := writeTempFile(t, "plain.pem", pemEncode("CERTIFICATE", leaf.Raw))
	plain := loadOne(t, plainPath, "", KindCertificate)
	if plain.Trust != nil {
		t.Fatal("plain certificate unexpectedly carries trust metadata")
	}
}
