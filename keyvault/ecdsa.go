package keyvault

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"
	"io"
	"math/big"

	"github.com/go-errors/errors"

	"github.com/ipv8go/wallet/internal/common"
)

var ErrInvalidSignature = errors.New("ecdsa signature was invalid")

type (
	// PublicKey verifies signatures of a peer and names it.
	PublicKey struct {
		key *ecdsa.PublicKey
	}

	// PrivateKey signs on behalf of the local peer.
	PrivateKey struct {
		key    *ecdsa.PrivateKey
		random io.Reader
	}
)

// GenerateKey creates a P-256 key drawing from rnd.
func GenerateKey(rnd io.Reader) (*PrivateKey, error) {
	sk, err := ecdsa.GenerateKey(elliptic.P256(), rnd)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key: sk, random: rnd}, nil
}

func (sk *PrivateKey) Public() *PublicKey {
	return &PublicKey{key: &sk.key.PublicKey}
}

// Sign signs the SHA-256 of bts, returning an ASN.1 (r, s) pair.
func (sk *PrivateKey) Sign(bts []byte) ([]byte, error) {
	hash := sha256.Sum256(bts)
	r, s, err := ecdsa.Sign(sk.random, sk.key, hash[:])
	if err != nil {
		return nil, err
	}
	return asn1.Marshal([]*big.Int{r, s})
}

func (pk *PublicKey) Verify(bts []byte, signature []byte) error {
	ints := make([]*big.Int, 2)
	if _, err := asn1.Unmarshal(signature, &ints); err != nil {
		return errors.WrapPrefix(ErrInvalidSignature, err.Error(), 0)
	}
	if len(ints) != 2 || ints[0] == nil || ints[1] == nil {
		return ErrInvalidSignature
	}
	hash := sha256.Sum256(bts)
	if !ecdsa.Verify(pk.key, hash[:], ints[0], ints[1]) {
		return ErrInvalidSignature
	}
	return nil
}

// ID is the SHA-1 of the PKIX encoding, used as peer identifier.
func (pk *PublicKey) ID() [common.HashSize]byte {
	bts, err := pk.Marshal()
	if err != nil {
		panic(err) // P-256 keys always marshal
	}
	return common.Sha1(bts)
}

func (pk *PublicKey) Equal(o *PublicKey) bool {
	return pk.key.Equal(o.key)
}

// Key (un)marshaling, DER and PEM.

func (pk *PublicKey) Marshal() ([]byte, error) {
	return x509.MarshalPKIXPublicKey(pk.key)
}

func (pk *PublicKey) MarshalPem() ([]byte, error) {
	bts, err := pk.Marshal()
	if err != nil {
		return nil, errors.WrapPrefix(err, "Failed to serialize public key", 0)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: bts}), nil
}

func UnmarshalPublicKey(bts []byte) (*PublicKey, error) {
	genericPk, err := x509.ParsePKIXPublicKey(bts)
	if err != nil {
		return nil, err
	}
	pk, ok := genericPk.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("invalid ecdsa public key")
	}
	return &PublicKey{key: pk}, nil
}

func UnmarshalPemPublicKey(bts []byte) (*PublicKey, error) {
	block, _ := pem.Decode(bts)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	return UnmarshalPublicKey(block.Bytes)
}

func (sk *PrivateKey) Marshal() ([]byte, error) {
	return x509.MarshalECPrivateKey(sk.key)
}

func (sk *PrivateKey) MarshalPem() ([]byte, error) {
	bts, err := sk.Marshal()
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: bts}), nil
}

func UnmarshalPrivateKey(bts []byte, rnd io.Reader) (*PrivateKey, error) {
	sk, err := x509.ParseECPrivateKey(bts)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key: sk, random: rnd}, nil
}

func UnmarshalPemPrivateKey(bts []byte, rnd io.Reader) (*PrivateKey, error) {
	block, _ := pem.Decode(bts)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	return UnmarshalPrivateKey(block.Bytes, rnd)
}
