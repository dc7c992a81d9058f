package gepg

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pkcs12"
)

var ErrSigning = errors.New("signing failed")

// Digest selects the hash paired with the RSA signature. The value is a
// gateway compatibility contract: it must match what the live gateway
// verifies against, not what is considered current practice.
type Digest string

const (
	DigestSHA1   Digest = "sha1"
	DigestSHA256 Digest = "sha256"
)

func (d Digest) hash() (h crypto.Hash, err error) {
	switch d {
	case DigestSHA1:
		return crypto.SHA1, nil
	case DigestSHA256:
		return crypto.SHA256, nil
	default:
		return 0, fmt.Errorf("unknown digest: %q", d)
	}
}

// Signer produces the detached base64 signatures embedded in every
// outbound envelope. The private key is decoded once at construction and
// held in memory for the lifetime of the process; it is never logged and
// never serialized.
type Signer struct {
	key  *rsa.PrivateKey
	hash crypto.Hash
}

// LoadSigner decodes a PKCS#12 keystore blob with the given passphrase and
// extracts its RSA private key. The blob is parsed exactly once; callers
// construct a single Signer and share it across bills.
func LoadSigner(keystore []byte, passphrase string, digest Digest) (s *Signer, err error) {
	hash, err := digest.hash()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}

	key, _, err := pkcs12.Decode(keystore, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode keystore: %v", ErrSigning, err)
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: keystore holds no RSA private key", ErrSigning)
	}
	return &Signer{key: rsaKey, hash: hash}, nil
}

// NewSigner wraps an already decoded RSA key.
func NewSigner(key *rsa.PrivateKey, digest Digest) (s *Signer, err error) {
	hash, err := digest.hash()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}
	if key == nil {
		return nil, fmt.Errorf("%w: nil private key", ErrSigning)
	}
	return &Signer{key: key, hash: hash}, nil
}

func (s *Signer) digest(canonical []byte) (digest []byte) {
	switch s.hash {
	case crypto.SHA1:
		sum := sha1.Sum(canonical)
		return sum[:]
	default:
		sum := sha256.Sum256(canonical)
		return sum[:]
	}
}

// Sign signs the canonical fragment and returns the base64 encoded
// signature. Identical input always yields an identical signature.
func (s *Signer) Sign(canonical []byte) (signature string, err error) {
	raw, err := rsa.SignPKCS1v15(rand.Reader, s.key, s.hash, s.digest(canonical))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Verify checks a base64 signature against the canonical fragment using
// the signer's public key.
func (s *Signer) Verify(canonical []byte, signature string) (err error) {
	raw, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("failed to decode signature: %w", err)
	}

	err = rsa.VerifyPKCS1v15(&s.key.PublicKey, s.hash, s.digest(canonical), raw)
	if err != nil {
		return fmt.Errorf("signature does not verify: %w", err)
	}
	return nil
}
