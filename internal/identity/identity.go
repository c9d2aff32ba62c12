// Package identity generates the self-signed debug signing identity
// used to re-sign a patched archive: a 2048-bit RSA key and an X.509
// certificate in the shape Android's own debug.keystore uses, so the
// resulting signature is accepted by any installer that only checks
// for a valid (not necessarily trusted) v1 signature.
package identity

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"math/big"
	"os"
	"time"

	"golang.org/x/exp/errors/fmt"

	"apkdebug/internal/apkerr"
)

const (
	keyBits  = 2048
	validFor = 10 * 365 * 24 * time.Hour

	commonName   = "APK Debug Key"
	organization = "Debug"
)

var (
	oidExtensionKeyUsage         = asn1.ObjectIdentifier{2, 5, 29, 15}
	oidExtensionBasicConstraints = asn1.ObjectIdentifier{2, 5, 29, 19}
)

// basicConstraints mirrors the ASN.1 shape x509.CreateCertificate itself
// marshals for this extension.
type basicConstraints struct {
	IsCA       bool `asn1:"optional"`
	MaxPathLen int  `asn1:"optional,default:-1"`
}

// certExtensions builds the basic-constraints and key-usage extensions
// by hand, in that order: x509.CreateCertificate's own automatic
// extension builder always emits key-usage before basic-constraints
// when both are requested via template fields, which this certificate's
// wire format requires the other way around.
func certExtensions() ([]pkix.Extension, error) {
	bc, err := asn1.Marshal(basicConstraints{IsCA: false, MaxPathLen: -1})
	if err != nil {
		return nil, err
	}

	var ku [1]byte
	ku[0] = reverseBits(byte(x509.KeyUsageDigitalSignature))
	bitString, err := asn1.Marshal(asn1.BitString{Bytes: ku[:], BitLength: 8})
	if err != nil {
		return nil, err
	}

	return []pkix.Extension{
		{Id: oidExtensionBasicConstraints, Critical: true, Value: bc},
		{Id: oidExtensionKeyUsage, Critical: true, Value: bitString},
	}, nil
}

// reverseBits reverses the bit order within a byte, since X.509 BIT
// STRINGs number bits starting from the most significant bit while
// KeyUsage's flags are defined least-significant-bit first.
func reverseBits(b byte) byte {
	var r byte
	for i := 0; i < 8; i++ {
		r <<= 1
		r |= b & 1
		b >>= 1
	}
	return r
}

// Identity is a generated private key paired with its self-signed certificate.
type Identity struct {
	Cert *x509.Certificate
	Key  *rsa.PrivateKey

	// DER holds the certificate's raw encoding, since x509.Certificate
	// does not round-trip losslessly through re-marshaling.
	DER []byte
}

// Generate creates a fresh 2048-bit RSA key and a 10-year self-signed
// certificate over it, issuer and subject both set to the debug
// identity's own name.
func Generate() (*Identity, error) {
	key, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, fmt.Errorf("generating signing key: %w: %s", apkerr.SignFailed, err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 64))
	if err != nil {
		return nil, fmt.Errorf("generating certificate serial: %w: %s", apkerr.SignFailed, err)
	}

	extensions, err := certExtensions()
	if err != nil {
		return nil, fmt.Errorf("building certificate extensions: %w: %s", apkerr.SignFailed, err)
	}

	name := pkix.Name{CommonName: commonName, Organization: []string{organization}}
	now := time.Now()
	template := &x509.Certificate{
		SerialNumber:       serial,
		Subject:            name,
		Issuer:             name,
		NotBefore:          now,
		NotAfter:           now.Add(validFor),
		SignatureAlgorithm: x509.SHA256WithRSA,
		IsCA:               false,
		ExtraExtensions:    extensions,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("creating self-signed certificate: %w: %s", apkerr.SignFailed, err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parsing freshly created certificate: %w: %s", apkerr.SignFailed, err)
	}

	return &Identity{Cert: cert, Key: key, DER: der}, nil
}

// Load reads a caller-supplied signing identity from a certificate PEM
// file and a PKCS#8 private key PEM file, the same on-disk shape this
// package's own Generate output writes.
func Load(certfile, keyfile string) (*Identity, error) {
	certPEM, err := os.ReadFile(certfile)
	if err != nil {
		return nil, err
	}
	certBlock, _ := pem.Decode(certPEM)
	if certBlock == nil {
		return nil, fmt.Errorf("%s: not a PEM file: %w", certfile, apkerr.SignFailed)
	}
	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", certfile, err)
	}

	keyPEM, err := os.ReadFile(keyfile)
	if err != nil {
		return nil, err
	}
	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return nil, fmt.Errorf("%s: not a PEM file: %w", keyfile, apkerr.SignFailed)
	}
	rawKey, err := x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", keyfile, err)
	}
	key, ok := rawKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%s: unsupported private key type %T", keyfile, rawKey)
	}

	return &Identity{Cert: cert, Key: key, DER: certBlock.Bytes}, nil
}

// WriteCertPEM encodes the certificate as a PEM block.
func (id *Identity) WriteCertPEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: id.DER})
}

// WriteKeyPKCS8PEM encodes the private key as a PKCS#8 PEM block,
// matching the format the teacher's own loader expects back.
func (id *Identity) WriteKeyPKCS8PEM() ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(id.Key)
	if err != nil {
		return nil, fmt.Errorf("marshaling private key: %w: %s", apkerr.SignFailed, err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}
