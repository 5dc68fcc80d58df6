package revocation

import (
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/go-errors/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipv8go/wallet/keyvault"
	"github.com/ipv8go/wallet/store"
)

func init() {
	Logger.SetLevel(logrus.FatalLevel)
}

func TestFilter(t *testing.T) {
	f := NewFilter(1<<12, 5)
	for i := 0; i < 100; i++ {
		f.Add([]byte(fmt.Sprintf("added-%d", i)))
	}
	for i := 0; i < 100; i++ {
		require.True(t, f.MayContain([]byte(fmt.Sprintf("added-%d", i))))
	}
	falsePositives := 0
	for i := 0; i < 1000; i++ {
		if f.MayContain([]byte(fmt.Sprintf("absent-%d", i))) {
			falsePositives++
		}
	}
	assert.Less(t, falsePositives, 50)
	assert.Equal(t, uint(100), f.Len())
}

func TestFilterConcurrent(t *testing.T) {
	f := NewFilter(0, 0)
	done := make(chan struct{})
	for g := 0; g < 4; g++ {
		go func(g int) {
			for i := 0; i < 100; i++ {
				f.Add([]byte{byte(g), byte(i)})
				f.MayContain([]byte{byte(i)})
			}
			done <- struct{}{}
		}(g)
	}
	for g := 0; g < 4; g++ {
		<-done
	}
	assert.True(t, f.MayContain([]byte{3, 99}))
}

func TestApply(t *testing.T) {
	sk, err := keyvault.GenerateKey(rand.Reader)
	require.NoError(t, err)
	db := store.NewMemory()
	list := NewList(db)

	msg, err := NewUpdate(1, []byte("revoked-1"), []byte("revoked-2")).Sign(sk)
	require.NoError(t, err)
	u, err := list.Apply(sk.Public(), msg)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), u.Version)

	assert.True(t, list.IsRevoked([]byte("revoked-1")))
	assert.True(t, list.IsRevoked([]byte("revoked-2")))
	assert.False(t, list.IsRevoked([]byte("valid")))
	assert.Equal(t, uint64(1), list.Version(AuthorityID(sk.Public())))

	_, err = list.Apply(sk.Public(), msg)
	assert.True(t, errors.Is(err, ErrStaleUpdate))

	// Reloading from the store restores the state for trusted authorities only.
	reloaded := NewList(db)
	require.NoError(t, reloaded.Load(map[string]*keyvault.PublicKey{}))
	assert.False(t, reloaded.IsRevoked([]byte("revoked-1")))
	require.NoError(t, reloaded.Load(map[string]*keyvault.PublicKey{AuthorityID(sk.Public()): sk.Public()}))
	assert.True(t, reloaded.IsRevoked([]byte("revoked-1")))
}

func TestApplyWrongAuthority(t *testing.T) {
	sk, err := keyvault.GenerateKey(rand.Reader)
	require.NoError(t, err)
	other, err := keyvault.GenerateKey(rand.Reader)
	require.NoError(t, err)

	msg, err := NewUpdate(1, []byte("revoked")).Sign(sk)
	require.NoError(t, err)
	list := NewList(nil)
	_, err = list.Apply(other.Public(), msg)
	require.Error(t, err)
	assert.False(t, list.IsRevoked([]byte("revoked")))

	_, err = NewUpdate(0).Sign(sk)
	require.Error(t, err)
}
