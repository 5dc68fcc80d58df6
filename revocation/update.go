package revocation

import (
	"encoding/hex"
	"time"

	"github.com/go-errors/errors"
	"github.com/google/uuid"

	"github.com/ipv8go/wallet/keyvault"
)

// Update lists attestation hashes an authority revokes. Versions of one authority start at 1
// and each version is applied once.
type Update struct {
	ID      string
	Version uint64
	Revoked [][]byte
	Time    int64
}

// NewUpdate creates an unsigned update timestamped now.
func NewUpdate(version uint64, revoked ...[]byte) *Update {
	return &Update{ID: uuid.NewString(), Version: version, Revoked: revoked, Time: time.Now().Unix()}
}

// Sign signs the update with the authority key.
func (u *Update) Sign(sk *keyvault.PrivateKey) (keyvault.Message, error) {
	if u.Version == 0 {
		return nil, errors.New("revocation update version must be positive")
	}
	return keyvault.MarshalSign(sk, u)
}

// VerifyUpdate checks the authority signature on msg and parses the update.
func VerifyUpdate(pk *keyvault.PublicKey, msg keyvault.Message) (*Update, error) {
	u := &Update{}
	if err := keyvault.UnmarshalVerify(pk, msg, u); err != nil {
		return nil, errors.WrapPrefix(err, "invalid revocation update", 0)
	}
	if u.Version == 0 {
		return nil, errors.New("revocation update without version")
	}
	return u, nil
}

// AuthorityID names an authority by the hex of its key id.
func AuthorityID(pk *keyvault.PublicKey) string {
	id := pk.ID()
	return hex.EncodeToString(id[:])
}
