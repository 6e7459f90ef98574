package wallet

import (
	"encoding/base64"
	"encoding/hex"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/libxfr-go/ledger"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// --- Mnemonic tests ---

func TestGenerateMnemonic_12Words(t *testing.T) {
	mnemonic, err := GenerateMnemonic(Mnemonic12Words)
	require.NoError(t, err)

	assert.Len(t, strings.Fields(mnemonic), 12)
	assert.True(t, ValidateMnemonic(mnemonic))
}

func TestGenerateMnemonic_24Words(t *testing.T) {
	mnemonic, err := GenerateMnemonic(Mnemonic24Words)
	require.NoError(t, err)

	assert.Len(t, strings.Fields(mnemonic), 24)
	assert.True(t, ValidateMnemonic(mnemonic))
}

func TestGenerateMnemonic_InvalidEntropy(t *testing.T) {
	_, err := GenerateMnemonic(64)
	assert.ErrorIs(t, err, ErrInvalidEntropy)
}

func TestSeedFromMnemonic_InvalidMnemonic(t *testing.T) {
	_, err := SeedFromMnemonic("invalid mnemonic words here", "")
	assert.ErrorIs(t, err, ErrInvalidMnemonic)
}

// --- Key derivation tests ---

func TestRestoreKeypairFromMnemonic_Deterministic(t *testing.T) {
	kp1, err := RestoreKeypairFromMnemonic(testMnemonic, "")
	require.NoError(t, err)
	kp2, err := RestoreKeypairFromMnemonic(testMnemonic, "")
	require.NoError(t, err)

	assert.Equal(t, kp1.PublicKey(), kp2.PublicKey())
	assert.Equal(t, "m/44'/917'/0'/0/0", kp1.Path)
	assert.False(t, kp1.PublicKey().IsBurn())
}

func TestRestoreKeypairFromMnemonic_NormalizesWhitespaceAndCase(t *testing.T) {
	kp1, err := RestoreKeypairFromMnemonic(testMnemonic, "")
	require.NoError(t, err)
	kp2, err := RestoreKeypairFromMnemonic("  "+strings.ToUpper(strings.ReplaceAll(testMnemonic, " ", "   "))+"\n", "")
	require.NoError(t, err)

	assert.Equal(t, kp1.PublicKey(), kp2.PublicKey())
}

func TestRestoreKeypairFromMnemonic_PassphraseChangesKey(t *testing.T) {
	kp1, err := RestoreKeypairFromMnemonic(testMnemonic, "")
	require.NoError(t, err)
	kp2, err := RestoreKeypairFromMnemonic(testMnemonic, "extra")
	require.NoError(t, err)

	assert.NotEqual(t, kp1.PublicKey(), kp2.PublicKey())
}

func TestDeriveKeypair_DifferentIndices(t *testing.T) {
	seed, err := SeedFromMnemonic(testMnemonic, "")
	require.NoError(t, err)

	kp0, err := DeriveKeypair(seed, 0, 0)
	require.NoError(t, err)
	kp1, err := DeriveKeypair(seed, 0, 1)
	require.NoError(t, err)
	acct1, err := DeriveKeypair(seed, 1, 0)
	require.NoError(t, err)

	assert.NotEqual(t, kp0.PublicKey(), kp1.PublicKey())
	assert.NotEqual(t, kp0.PublicKey(), acct1.PublicKey())
	assert.Equal(t, "m/44'/917'/1'/0/0", acct1.Path)
}

func TestDeriveKeypair_Errors(t *testing.T) {
	_, err := DeriveKeypair(nil, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidSeed)

	seed, err := SeedFromMnemonic(testMnemonic, "")
	require.NoError(t, err)
	_, err = DeriveKeypair(seed, Hardened, 0)
	assert.ErrorIs(t, err, ErrDerivationFailed)
}

func TestKeypairFromSecret(t *testing.T) {
	secret := make([]byte, SecretKeyLen)
	secret[31] = 1

	kp, err := KeypairFromSecret(secret)
	require.NoError(t, err)
	assert.Empty(t, kp.Path)
	// 1*G, the generator point.
	pk := kp.PublicKey()
	assert.Equal(t, "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798",
		hex.EncodeToString(pk[:]))
}

func TestKeypairFromSecret_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		secret []byte
	}{
		{"short", make([]byte, 31)},
		{"zero", make([]byte, 32)},
		{"order", mustHex(t, "fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := KeypairFromSecret(tc.secret)
			assert.ErrorIs(t, err, ErrInvalidSecretKey)
		})
	}
}

func TestParseKeyMaterial(t *testing.T) {
	fromMnemonic, err := RestoreKeypairFromMnemonic(testMnemonic, "")
	require.NoError(t, err)

	kp, err := ParseKeyMaterial([]byte(testMnemonic))
	require.NoError(t, err)
	assert.Equal(t, fromMnemonic.PublicKey(), kp.PublicKey())

	secret := make([]byte, SecretKeyLen)
	secret[31] = 7
	fromSecret, err := KeypairFromSecret(secret)
	require.NoError(t, err)

	kp, err = ParseKeyMaterial([]byte(hex.EncodeToString(secret)))
	require.NoError(t, err)
	assert.Equal(t, fromSecret.PublicKey(), kp.PublicKey())

	kp, err = ParseKeyMaterial([]byte(base64.StdEncoding.EncodeToString(secret)))
	require.NoError(t, err)
	assert.Equal(t, fromSecret.PublicKey(), kp.PublicKey())

	_, err = ParseKeyMaterial([]byte("   "))
	assert.ErrorIs(t, err, ErrInvalidSecretKey)

	_, err = ParseKeyMaterial([]byte("not a valid mnemonic phrase at all"))
	assert.ErrorIs(t, err, ErrInvalidMnemonic)

	_, err = ParseKeyMaterial([]byte("!!!"))
	assert.ErrorIs(t, err, ErrInvalidSecretKey)
}

func TestSign_VerifiesAgainstPublicKey(t *testing.T) {
	kp, err := RestoreKeypairFromMnemonic(testMnemonic, "")
	require.NoError(t, err)

	digest := ledger.Digest([]byte("transfer body"))
	sig, err := kp.Sign(digest)
	require.NoError(t, err)

	assert.True(t, ledger.VerifySignature(kp.PublicKey(), digest, sig))
	assert.False(t, ledger.VerifySignature(kp.PublicKey(), ledger.Digest([]byte("other")), sig))
}

// --- Public key encoding tests ---

func TestEncodeDecodePublicKey(t *testing.T) {
	kp, err := RestoreKeypairFromMnemonic(testMnemonic, "")
	require.NoError(t, err)

	encoded := EncodePublicKey(kp.PublicKey())
	decoded, err := DecodePublicKey(encoded)
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey(), decoded)

	// Standard alphabet is accepted too.
	pk := kp.PublicKey()
	std := base64.StdEncoding.EncodeToString(pk[:])
	decoded, err = DecodePublicKey(std)
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey(), decoded)
}

func TestDecodePublicKey_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not base64", "***"},
		{"wrong length", base64.URLEncoding.EncodeToString(make([]byte, 32))},
		{"burn key is not a point", ledger.BurnPublicKey.String()},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodePublicKey(tc.in)
			assert.ErrorIs(t, err, ErrInvalidPublicKey)
		})
	}
}

// --- Keystore tests ---

func TestEncryptDecryptSecret_RoundTrip(t *testing.T) {
	secret := []byte(testMnemonic)

	encrypted, err := EncryptSecret(secret, "test-password-123")
	require.NoError(t, err)
	assert.Greater(t, len(encrypted), len(secret))

	decrypted, err := DecryptSecret(encrypted, "test-password-123")
	require.NoError(t, err)
	assert.Equal(t, secret, decrypted)
}

func TestDecryptSecret_WrongPassword(t *testing.T) {
	encrypted, err := EncryptSecret([]byte("secret"), "correct-password")
	require.NoError(t, err)

	_, err = DecryptSecret(encrypted, "wrong-password")
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecryptSecret_Corrupted(t *testing.T) {
	encrypted, err := EncryptSecret([]byte("secret material"), "pw")
	require.NoError(t, err)

	encrypted[SaltLen+NonceLen+3] ^= 0xFF
	_, err = DecryptSecret(encrypted, "pw")
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = DecryptSecret([]byte{0x01, 0x02}, "pw")
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestEncryptSecret_Empty(t *testing.T) {
	_, err := EncryptSecret(nil, "pw")
	assert.ErrorIs(t, err, ErrInvalidSeed)
}

func TestSaveLoadKeystore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "sender.ks")

	require.NoError(t, SaveKeystore(path, []byte(testMnemonic), "pw"))

	material, err := LoadKeystore(path, "pw")
	require.NoError(t, err)
	assert.Equal(t, testMnemonic, string(material))

	_, err = LoadKeystore(filepath.Join(t.TempDir(), "missing"), "pw")
	assert.Error(t, err)
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}
