package verifactu

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"software.sslmate.com/src/go-pkcs12"
)

// DefaultSoftwareID identifies this software in placeholder signatures.
const DefaultSoftwareID = "SYS-FACT-001"

type SignatureKind string

const (
	// KindPKCS12 is a real signature made with the company certificate.
	KindPKCS12 SignatureKind = "pkcs12"
	// KindPlaceholder is a keyless digest kept for companies without a
	// certificate. It attests nothing.
	KindPlaceholder SignatureKind = "placeholder"
)

// Signature is either a certificate signature or an unverified placeholder.
type Signature struct {
	Kind  SignatureKind
	Value string
}

// IsAttested reports whether the signature was made with a private key.
func (s Signature) IsAttested() bool {
	return s.Kind == KindPKCS12
}

// Credential is a PKCS#12 bundle and its passphrase.
type Credential struct {
	Bundle   []byte
	Password string
}

// Present reports whether a usable credential was configured at all.
func (c *Credential) Present() bool {
	return c != nil && len(c.Bundle) > 0 && c.Password != ""
}

type SigningFailure string

const (
	ReasonBadPassphrase        SigningFailure = "bad passphrase"
	ReasonMalformedCertificate SigningFailure = "malformed certificate"
	ReasonUnsupportedKey       SigningFailure = "unsupported key type"
)

// SigningError means a configured credential could not be used.
type SigningError struct {
	Reason SigningFailure
	Err    error
}

func (e *SigningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("signing failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("signing failed: %s", e.Reason)
}

func (e *SigningError) Unwrap() error {
	return e.Err
}

// SignInput carries what both signature kinds bind to.
type SignInput struct {
	Hash       string
	Credential *Credential
	CIF        string
	SoftwareID string
	Timestamp  string
}

// Sign signs the invoice hash with the company certificate, or produces a
// placeholder digest when no certificate is configured. A credential that is
// present but unusable is an error, never a fallback.
func Sign(in SignInput) (Signature, error) {
	if !in.Credential.Present() {
		return Signature{Kind: KindPlaceholder, Value: placeholderDigest(in)}, nil
	}

	key, _, err := decodeCredential(in.Credential)
	if err != nil {
		return Signature{}, err
	}

	var raw []byte
	switch k := key.(type) {
	case ed25519.PrivateKey:
		raw = ed25519.Sign(k, []byte(in.Hash))
	case crypto.Signer:
		digest := sha256.Sum256([]byte(in.Hash))
		raw, err = k.Sign(rand.Reader, digest[:], crypto.SHA256)
		if err != nil {
			return Signature{}, &SigningError{Reason: ReasonMalformedCertificate, Err: err}
		}
	default:
		return Signature{}, &SigningError{Reason: ReasonUnsupportedKey, Err: fmt.Errorf("%T", key)}
	}

	return Signature{Kind: KindPKCS12, Value: base64.StdEncoding.EncodeToString(raw)}, nil
}

// VerifySignature checks sig against the same input it was produced from.
// Placeholders are recomputed; certificate signatures are checked against
// the bundle's public key.
func VerifySignature(in SignInput, sig Signature) (bool, error) {
	switch sig.Kind {
	case KindPlaceholder:
		return sig.Value == placeholderDigest(in), nil
	case KindPKCS12:
		if !in.Credential.Present() {
			return false, &SigningError{Reason: ReasonMalformedCertificate, Err: errors.New("no certificate to verify against")}
		}
		_, cert, err := decodeCredential(in.Credential)
		if err != nil {
			return false, err
		}
		raw, err := base64.StdEncoding.DecodeString(sig.Value)
		if err != nil {
			return false, nil
		}
		return verifyWithPublicKey(cert.PublicKey, in.Hash, raw), nil
	default:
		return false, fmt.Errorf("unknown signature kind %q", sig.Kind)
	}
}

// CheckCredential decodes the bundle without signing anything and returns
// its leaf certificate.
func CheckCredential(c *Credential) (*x509.Certificate, error) {
	if !c.Present() {
		return nil, &SigningError{Reason: ReasonMalformedCertificate, Err: errors.New("certificate and passphrase are both required")}
	}
	_, cert, err := decodeCredential(c)
	return cert, err
}

func decodeCredential(c *Credential) (interface{}, *x509.Certificate, error) {
	key, cert, _, err := pkcs12.DecodeChain(c.Bundle, c.Password)
	if err != nil {
		if errors.Is(err, pkcs12.ErrIncorrectPassword) {
			return nil, nil, &SigningError{Reason: ReasonBadPassphrase, Err: err}
		}
		return nil, nil, &SigningError{Reason: ReasonMalformedCertificate, Err: err}
	}
	if key == nil || cert == nil {
		return nil, nil, &SigningError{Reason: ReasonMalformedCertificate, Err: errors.New("bundle has no key or certificate")}
	}
	return key, cert, nil
}

func verifyWithPublicKey(pub interface{}, hash string, sig []byte) bool {
	digest := sha256.Sum256([]byte(hash))
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return rsa.VerifyPKCS1v15(k, crypto.SHA256, digest[:], sig) == nil
	case *ecdsa.PublicKey:
		return ecdsa.VerifyASN1(k, digest[:], sig)
	case ed25519.PublicKey:
		return ed25519.Verify(k, []byte(hash), sig)
	}
	return false
}

type placeholderDocument struct {
	Hash       string `json:"hash"`
	CIF        string `json:"cif"`
	SoftwareID string `json:"software_id"`
	Timestamp  string `json:"timestamp"`
}

func placeholderDigest(in SignInput) string {
	softwareID := in.SoftwareID
	if softwareID == "" {
		softwareID = DefaultSoftwareID
	}
	data, _ := json.Marshal(placeholderDocument{
		Hash:       in.Hash,
		CIF:        in.CIF,
		SoftwareID: softwareID,
		Timestamp:  in.Timestamp,
	})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
