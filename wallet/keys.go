package wallet

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	bip32 "github.com/bsv-blockchain/go-sdk/compat/bip32"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	chaincfg "github.com/bsv-blockchain/go-sdk/transaction/chaincfg"

	"github.com/bitfsorg/libxfr-go/ledger"
)

const (
	// BIP44 path constants.
	PurposeBIP44   = 44
	CoinTypeLedger = 917
	DefaultAccount = 0
	ExternalChain  = 0

	// BIP32 hardened offset.
	Hardened = 0x80000000

	// SecretKeyLen is the length of a raw secp256k1 secret key.
	SecretKeyLen = 32
)

// KeyPair is a signing key for the ledger. It implements ledger.Signer.
type KeyPair struct {
	priv *ec.PrivateKey
	pub  ledger.PublicKey
	Path string // derivation path, empty for raw secrets
}

var _ ledger.Signer = (*KeyPair)(nil)

// PublicKey returns the compressed public key.
func (kp *KeyPair) PublicKey() ledger.PublicKey {
	return kp.pub
}

// ECPublicKey returns the public key as a curve point.
func (kp *KeyPair) ECPublicKey() *ec.PublicKey {
	return kp.priv.PubKey()
}

// Sign signs a 32-byte digest and returns the DER signature.
func (kp *KeyPair) Sign(digest []byte) (ledger.Signature, error) {
	sig, err := kp.priv.Sign(digest)
	if err != nil {
		return nil, fmt.Errorf("wallet: sign: %w", err)
	}
	return sig.Serialize(), nil
}

func newKeyPair(priv *ec.PrivateKey, path string) (*KeyPair, error) {
	pub := priv.PubKey()
	if pub == nil {
		return nil, fmt.Errorf("%w: failed to derive public key", ErrDerivationFailed)
	}
	pk, err := ledger.PublicKeyFromBytes(pub.Compressed())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
	}
	return &KeyPair{priv: priv, pub: pk, Path: path}, nil
}

// RestoreKeypairFromMnemonic derives the default account key
// m/44'/917'/0'/0/0 from a BIP39 mnemonic and passphrase.
func RestoreKeypairFromMnemonic(mnemonic, passphrase string) (*KeyPair, error) {
	seed, err := SeedFromMnemonic(normalizeMnemonic(mnemonic), passphrase)
	if err != nil {
		return nil, err
	}
	return DeriveKeypair(seed, DefaultAccount, 0)
}

// DeriveKeypair derives m/44'/917'/account'/0/index from a BIP39 seed.
func DeriveKeypair(seed []byte, account, index uint32) (*KeyPair, error) {
	if len(seed) == 0 {
		return nil, ErrInvalidSeed
	}
	if account >= Hardened || index >= Hardened {
		return nil, fmt.Errorf("%w: index out of range", ErrDerivationFailed)
	}

	master, err := bip32.NewMaster(seed, &chaincfg.MainNet)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
	}

	key := master
	for i, child := range []uint32{
		PurposeBIP44 + Hardened,
		CoinTypeLedger + Hardened,
		account + Hardened,
		ExternalChain,
		index,
	} {
		key, err = key.Child(child)
		if err != nil {
			return nil, fmt.Errorf("%w: depth %d: %w", ErrDerivationFailed, i+1, err)
		}
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to extract EC private key: %w", ErrDerivationFailed, err)
	}
	return newKeyPair(priv, fmt.Sprintf("m/44'/%d'/%d'/%d/%d", CoinTypeLedger, account, ExternalChain, index))
}

// KeypairFromSecret uses a raw 32-byte secret key directly.
func KeypairFromSecret(secret []byte) (*KeyPair, error) {
	if len(secret) != SecretKeyLen {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSecretKey, SecretKeyLen, len(secret))
	}
	d := new(big.Int).SetBytes(secret)
	if d.Sign() == 0 || d.Cmp(ec.S256().Params().N) >= 0 {
		return nil, fmt.Errorf("%w: scalar out of range", ErrInvalidSecretKey)
	}
	priv, _ := ec.PrivateKeyFromBytes(secret)
	return newKeyPair(priv, "")
}

// ParseKeyMaterial accepts a BIP39 mnemonic, or a 32-byte secret key as hex
// or base64, and returns the signing key it names.
func ParseKeyMaterial(material []byte) (*KeyPair, error) {
	s := strings.TrimSpace(string(material))
	if s == "" {
		return nil, fmt.Errorf("%w: empty key material", ErrInvalidSecretKey)
	}
	if strings.Contains(s, " ") {
		return RestoreKeypairFromMnemonic(s, "")
	}
	if len(s) == 2*SecretKeyLen {
		if b, err := hex.DecodeString(s); err == nil {
			return KeypairFromSecret(b)
		}
	}
	b, err := ledger.DecodeBase64(s)
	if err != nil {
		return nil, fmt.Errorf("%w: neither mnemonic, hex nor base64", ErrInvalidSecretKey)
	}
	return KeypairFromSecret(b)
}

// EncodePublicKey returns the URL-safe base64 wire encoding of pk.
func EncodePublicKey(pk ledger.PublicKey) string {
	return pk.String()
}

// DecodePublicKey decodes a base64 public key and checks it is on the curve.
func DecodePublicKey(s string) (ledger.PublicKey, error) {
	b, err := ledger.DecodeBase64(strings.TrimSpace(s))
	if err != nil {
		return ledger.PublicKey{}, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
	}
	pk, err := ledger.PublicKeyFromBytes(b)
	if err != nil {
		return ledger.PublicKey{}, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
	}
	if _, err := ec.PublicKeyFromBytes(b); err != nil {
		return ledger.PublicKey{}, fmt.Errorf("%w: not a curve point: %w", ErrInvalidPublicKey, err)
	}
	return pk, nil
}

func normalizeMnemonic(m string) string {
	return strings.Join(strings.Fields(strings.ToLower(m)), " ")
}
