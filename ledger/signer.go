package ledger

import (
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"
)

// Signature is a DER-encoded ECDSA signature.
type Signature []byte

// Signer is a keypair able to sign ledger message digests.
type Signer interface {
	// PublicKey returns the signer's ledger public key.
	PublicKey() PublicKey

	// Sign signs a 32-byte message digest.
	Sign(digest []byte) (Signature, error)
}

// Digest returns the message digest signed for msg.
func Digest(msg []byte) []byte {
	return bsvhash.Sha256(msg)
}

// VerifySignature checks sig over digest against pk.
func VerifySignature(pk PublicKey, digest []byte, sig Signature) bool {
	pub, err := ec.PublicKeyFromBytes(pk[:])
	if err != nil {
		return false
	}
	parsed, err := ec.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	return parsed.Verify(digest, pub)
}
