package verifactu

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/facturas/internal/testutil"
)

const testHash = "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8"

func TestSignWithCertificate(t *testing.T) {
	bundle := testutil.NewTestCredential(t, "password123")
	in := SignInput{
		Hash:       testHash,
		Credential: &Credential{Bundle: bundle, Password: "password123"},
		CIF:        "B12345678",
		Timestamp:  "2026-10-15T09:30:00.000Z",
	}

	sig, err := Sign(in)
	require.NoError(t, err)
	assert.Equal(t, KindPKCS12, sig.Kind)
	assert.True(t, sig.IsAttested())

	raw, err := base64.StdEncoding.DecodeString(sig.Value)
	require.NoError(t, err)
	assert.Len(t, raw, 256) // RSA-2048

	ok, err := VerifySignature(in, sig)
	require.NoError(t, err)
	assert.True(t, ok)

	t.Run("Tampered Hash", func(t *testing.T) {
		other := in
		other.Hash = "00" + testHash[2:]
		ok, err := VerifySignature(other, sig)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestSignFailures(t *testing.T) {
	bundle := testutil.NewTestCredential(t, "password123")

	tests := []struct {
		name       string
		credential *Credential
		reason     SigningFailure
	}{
		{
			name:       "Wrong Passphrase",
			credential: &Credential{Bundle: bundle, Password: "wrong"},
			reason:     ReasonBadPassphrase,
		},
		{
			name:       "Garbage Bundle",
			credential: &Credential{Bundle: []byte("not a pkcs12 file"), Password: "password123"},
			reason:     ReasonMalformedCertificate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := Sign(SignInput{Hash: testHash, Credential: tt.credential, CIF: "B12345678"})
			assert.Empty(t, sig.Value)

			var signErr *SigningError
			require.True(t, errors.As(err, &signErr), "expected SigningError, got %v", err)
			assert.Equal(t, tt.reason, signErr.Reason)
		})
	}
}

func TestSignPlaceholder(t *testing.T) {
	in := SignInput{
		Hash:      testHash,
		CIF:       "B12345678",
		Timestamp: "2026-10-15T09:30:00.000Z",
	}

	sig, err := Sign(in)
	require.NoError(t, err)
	assert.Equal(t, KindPlaceholder, sig.Kind)
	assert.False(t, sig.IsAttested())
	assert.Len(t, sig.Value, 64)

	again, err := Sign(in)
	require.NoError(t, err)
	assert.Equal(t, sig, again)

	ok, err := VerifySignature(in, sig)
	require.NoError(t, err)
	assert.True(t, ok)

	t.Run("Default Software Id", func(t *testing.T) {
		explicit := in
		explicit.SoftwareID = DefaultSoftwareID
		other, err := Sign(explicit)
		require.NoError(t, err)
		assert.Equal(t, sig.Value, other.Value)
	})

	t.Run("Password Without Bundle Falls Back", func(t *testing.T) {
		partial := in
		partial.Credential = &Credential{Password: "secret"}
		other, err := Sign(partial)
		require.NoError(t, err)
		assert.Equal(t, KindPlaceholder, other.Kind)
	})
}

func TestVerifyCertificateSignatureWithoutCredential(t *testing.T) {
	_, err := VerifySignature(SignInput{Hash: testHash}, Signature{Kind: KindPKCS12, Value: "AAAA"})
	var signErr *SigningError
	assert.True(t, errors.As(err, &signErr))
}

func TestCheckCredential(t *testing.T) {
	bundle := testutil.NewTestCredential(t, "secret")

	cert, err := CheckCredential(&Credential{Bundle: bundle, Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "Test VeriFactu", cert.Subject.CommonName)

	_, err = CheckCredential(&Credential{Bundle: bundle, Password: "nope"})
	var signErr *SigningError
	require.ErrorAs(t, err, &signErr)
	assert.Equal(t, ReasonBadPassphrase, signErr.Reason)

	_, err = CheckCredential(&Credential{Bundle: bundle})
	require.ErrorAs(t, err, &signErr)
	assert.Equal(t, ReasonMalformedCertificate, signErr.Reason)
}
