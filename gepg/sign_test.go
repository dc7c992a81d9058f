package gepg_test

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trais-tz/epay/gepg"
)

func testSigner(t *testing.T, digest gepg.Digest) (signer *gepg.Signer) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	signer, err = gepg.NewSigner(key, digest)
	if err != nil {
		t.Fatalf("failed to create signer: %v", err)
	}
	return signer
}

func Test_Signer(t *testing.T) {
	canonical := []byte("<gepgBillSubReq><BillHdr><SpCode>SP19917</SpCode></BillHdr></gepgBillSubReq>")

	for _, digest := range []gepg.Digest{gepg.DigestSHA1, gepg.DigestSHA256} {
		t.Run(string(digest), func(t *testing.T) {
			assertions := assert.New(t)
			signer := testSigner(t, digest)

			first, err := signer.Sign(canonical)
			assertions.Nil(err, "failed to sign")
			assertions.NotEmpty(first)

			// The gateway compares signatures byte for byte on retries, so
			// identical input must always produce the identical signature
			second, err := signer.Sign(canonical)
			assertions.Nil(err, "failed to sign")
			assertions.Equal(first, second)

			assertions.Nil(signer.Verify(canonical, first), "signature does not verify")
		})
	}
	t.Run("TamperedInput", func(t *testing.T) {
		assertions := assert.New(t)
		signer := testSigner(t, gepg.DigestSHA1)

		signature, err := signer.Sign(canonical)
		assertions.Nil(err, "failed to sign")

		tampered := append([]byte{}, canonical...)
		tampered[10] ^= 0xff
		assertions.NotNil(signer.Verify(tampered, signature), "tampered input verified")
	})
	t.Run("BogusSignature", func(t *testing.T) {
		assertions := assert.New(t)
		signer := testSigner(t, gepg.DigestSHA1)

		assertions.NotNil(signer.Verify(canonical, "not base64!"))
		assertions.NotNil(signer.Verify(canonical, "aGVsbG8="))
	})
}

func Test_LoadSigner(t *testing.T) {
	t.Run("GarbageKeystore", func(t *testing.T) {
		assertions := assert.New(t)

		_, err := gepg.LoadSigner([]byte("definitely not pkcs12"), "passphrase", gepg.DigestSHA1)
		assertions.True(errors.Is(err, gepg.ErrSigning), "expected ErrSigning, got %v", err)
	})
	t.Run("UnknownDigest", func(t *testing.T) {
		assertions := assert.New(t)

		_, err := gepg.LoadSigner(nil, "", gepg.Digest("md5"))
		assertions.True(errors.Is(err, gepg.ErrSigning), "expected ErrSigning, got %v", err)

		key, err := rsa.GenerateKey(rand.Reader, 2048)
		assertions.Nil(err, "failed to generate key")

		_, err = gepg.NewSigner(key, gepg.Digest("md5"))
		assertions.True(errors.Is(err, gepg.ErrSigning), "expected ErrSigning, got %v", err)
	})
	t.Run("NilKey", func(t *testing.T) {
		assertions := assert.New(t)

		_, err := gepg.NewSigner(nil, gepg.DigestSHA1)
		assertions.True(errors.Is(err, gepg.ErrSigning), "expected ErrSigning, got %v", err)
	})
}

func Test_StringWithinTag(t *testing.T) {
	assertions := assert.New(t)

	body := []byte("<Gepg><gepgBillSubReq><BillId>a1b2c3d4</BillId></gepgBillSubReq><gepgSignature>sig</gepgSignature></Gepg>")

	fragment := gepg.StringWithinTag(body, "gepgBillSubReq")
	assertions.Equal("<gepgBillSubReq><BillId>a1b2c3d4</BillId></gepgBillSubReq>", string(fragment))

	assertions.Nil(gepg.StringWithinTag(body, "gepgPmtSpInfo"))
	assertions.Nil(gepg.StringWithinTag([]byte("<gepgBillSubReq>unterminated"), "gepgBillSubReq"))
}
