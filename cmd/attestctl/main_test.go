package main

import (
	"bytes"
	"crypto/rand"
	"path/filepath"
	"testing"

	"github.com/go-errors/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipv8go/wallet"
	"github.com/ipv8go/wallet/internal/common"
	"github.com/ipv8go/wallet/keyvault"
	"github.com/ipv8go/wallet/revocation"
	"github.com/ipv8go/wallet/store"
)

func init() {
	wallet.Logger.SetLevel(logrus.FatalLevel)
}

func openDB(t *testing.T) *store.DB {
	db, err := store.Open(filepath.Join(t.TempDir(), "wallet.db"))
	require.NoError(t, err)
	t.Cleanup(func() { common.Close(db) })
	return db
}

func TestAttestProve(t *testing.T) {
	r, err := registry()
	require.NoError(t, err)
	db := openDB(t)

	for _, tc := range []struct {
		format, value, other string
	}{
		{"id_metadata", "MyAttribute", "Other"},
		{"id_metadata_range_18plus", "25", "30"},
	} {
		t.Run(tc.format, func(t *testing.T) {
			alg, err := r.GetAlgorithmInstance(tc.format)
			require.NoError(t, err)
			sk, err := alg.GenerateSecrets()
			require.NoError(t, err)

			hash, err := attest(r, db, tc.format, sk.Serialize(), tc.value)
			require.NoError(t, err)
			rec, err := db.Get(hash[:])
			require.NoError(t, err)

			certainties, err := prove(r, rec, []string{tc.value, tc.other})
			require.NoError(t, err)
			assert.Greater(t, certainties[0], 0.99)
			if tc.format == "id_metadata" {
				assert.Equal(t, 0.0, certainties[1])
			}
		})
	}
}

func TestParseRangeValue(t *testing.T) {
	r, err := registry()
	require.NoError(t, err)
	alg, err := r.GetAlgorithmInstance("id_metadata_range_underage")
	require.NoError(t, err)
	v, err := parseValue(alg, "258")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, v)
	_, err = parseValue(alg, "-1")
	assert.Error(t, err)
}

func TestRevoke(t *testing.T) {
	db := openDB(t)
	sk, err := keyvault.GenerateKey(rand.Reader)
	require.NoError(t, err)

	u, err := revoke(db, sk, [][]byte{[]byte("first")})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), u.Version)
	u, err = revoke(db, sk, [][]byte{[]byte("second")})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), u.Version)

	list := revocation.NewList(db)
	require.NoError(t, list.Load(map[string]*keyvault.PublicKey{revocation.AuthorityID(sk.Public()): sk.Public()}))
	assert.True(t, list.IsRevoked([]byte("first")))
	assert.True(t, list.IsRevoked([]byte("second")))
}

func TestSchemasCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"schemas"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "id_metadata_range_18plus\tpengbaorange")
}

func TestConfigReadError(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")
	t.Cleanup(func() { _ = rootCmd.PersistentFlags().Set("config", "") })
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"--config", missing, "schemas"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading "+missing)
	_, ok := err.(*errors.Error)
	assert.True(t, ok)
}
