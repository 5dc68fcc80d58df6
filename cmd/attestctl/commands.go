package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	"github.com/go-errors/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ipv8go/wallet/big"
	"github.com/ipv8go/wallet/internal/common"
	"github.com/ipv8go/wallet/keyvault"
	"github.com/ipv8go/wallet/revocation"
	"github.com/ipv8go/wallet/schema"
	"github.com/ipv8go/wallet/store"
)

func schemasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schemas",
		Short: "List the registered schema formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := registry()
			if err != nil {
				return err
			}
			for _, name := range r.Formats() {
				f, _ := r.Format(name)
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tkey_size=%d hash=%s min=%d max=%d\n",
					name, f.Algorithm, f.KeySize, f.Hash, f.Min, f.Max)
			}
			return nil
		},
	}
}

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen <format> <file>",
		Short: "Generate an attestation key pair for a format",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := registry()
			if err != nil {
				return err
			}
			alg, err := r.GetAlgorithmInstance(args[0])
			if err != nil {
				return err
			}
			sk, err := alg.GenerateSecrets()
			if err != nil {
				return err
			}
			if err = os.WriteFile(args[1], sk.Serialize(), 0600); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(sk.Public().Serialize()))
			return nil
		},
	}
}

// parseValue reads an attribute value: an integer for range formats, raw text otherwise.
func parseValue(alg schema.Algorithm, s string) ([]byte, error) {
	if alg.Kind() != schema.PengBaoRange {
		return []byte(s), nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, errors.WrapPrefix(err, "range formats take an unsigned integer value", 0)
	}
	return new(big.Int).SetUint64(v).Bytes(), nil
}

// attest creates an attestation of value with the key in skBytes and stores it in db.
func attest(r *schema.Registry, db *store.DB, format string, skBytes []byte, value string) ([common.HashSize]byte, error) {
	var hash [common.HashSize]byte
	alg, err := r.GetAlgorithmInstance(format)
	if err != nil {
		return hash, err
	}
	sk, err := alg.LoadSecretKey(skBytes)
	if err != nil {
		return hash, err
	}
	v, err := parseValue(alg, value)
	if err != nil {
		return hash, err
	}
	blob, err := alg.Attest(sk.Public(), v)
	if err != nil {
		return hash, err
	}
	att, err := alg.DeserializePrivate(sk, blob, format)
	if err != nil {
		return hash, err
	}
	hash = att.Hash()
	return hash, db.Insert(&store.Record{Hash: hash[:], Blob: blob, SecretKey: skBytes, IDFormat: format})
}

func attestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attest <format> <keyfile> <value>",
		Short: "Attest a value and store the attestation",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := registry()
			if err != nil {
				return err
			}
			skBytes, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			db, err := store.Open(viper.GetString("db"))
			if err != nil {
				return err
			}
			defer common.Close(db)
			hash, err := attest(r, db, args[0], skBytes, args[2])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(hash[:]))
			return nil
		},
	}
}

// prove plays both subject and verifier over a stored attestation and returns the certainty
// of each candidate value.
func prove(r *schema.Registry, rec *store.Record, candidates []string) ([]float64, error) {
	alg, err := r.GetAlgorithmInstance(rec.IDFormat)
	if err != nil {
		return nil, err
	}
	sk, err := alg.LoadSecretKey(rec.SecretKey)
	if err != nil {
		return nil, err
	}
	private, err := alg.DeserializePrivate(sk, rec.Blob, rec.IDFormat)
	if err != nil {
		return nil, err
	}
	public, err := alg.Deserialize(private.Serialize(), rec.IDFormat)
	if err != nil {
		return nil, err
	}

	agg := alg.CreateCertaintyAggregate(public)
	challenges, err := alg.CreateChallenges(public)
	if err != nil {
		return nil, err
	}
	for _, ch := range challenges {
		resp, err := alg.CreateChallengeResponse(sk, private, ch)
		if err != nil {
			return nil, err
		}
		if err = alg.ProcessChallengeResponse(agg, ch, resp); err != nil {
			return nil, err
		}
	}

	certainties := make([]float64, len(candidates))
	for i, c := range candidates {
		v, err := parseValue(alg, c)
		if err != nil {
			return nil, err
		}
		certainties[i] = alg.Certainty(v, agg)
	}
	return certainties, nil
}

func proveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prove <hash> <candidate>...",
		Short: "Run a local challenge round over a stored attestation",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := registry()
			if err != nil {
				return err
			}
			hash, err := hex.DecodeString(args[0])
			if err != nil {
				return err
			}
			db, err := store.Open(viper.GetString("db"))
			if err != nil {
				return err
			}
			defer common.Close(db)
			rec, err := db.Get(hash)
			if err != nil {
				return err
			}
			certainties, err := prove(r, rec, args[1:])
			if err != nil {
				return err
			}
			for i, c := range certainties {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.6f\n", args[i+1], c)
			}
			return nil
		},
	}
}

func authorityKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "authority-key <file>",
		Short: "Generate a PEM encoded revocation authority key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rnd, err := common.NewRandom()
			if err != nil {
				return err
			}
			sk, err := keyvault.GenerateKey(rnd)
			if err != nil {
				return err
			}
			bts, err := sk.MarshalPem()
			if err != nil {
				return err
			}
			if err = os.WriteFile(args[0], bts, 0600); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), revocation.AuthorityID(sk.Public()))
			return nil
		},
	}
}

// revoke signs the next revocation update of the authority and applies it to db.
func revoke(db *store.DB, sk *keyvault.PrivateKey, hashes [][]byte) (*revocation.Update, error) {
	pk := sk.Public()
	list := revocation.NewList(db)
	if err := list.Load(map[string]*keyvault.PublicKey{revocation.AuthorityID(pk): pk}); err != nil {
		return nil, err
	}
	u := revocation.NewUpdate(list.Version(revocation.AuthorityID(pk))+1, hashes...)
	msg, err := u.Sign(sk)
	if err != nil {
		return nil, err
	}
	return list.Apply(pk, msg)
}

func revokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <pemfile> <hash>...",
		Short: "Sign a revocation update and record it in the database",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pem, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			rnd, err := common.NewRandom()
			if err != nil {
				return err
			}
			sk, err := keyvault.UnmarshalPemPrivateKey(pem, rnd)
			if err != nil {
				return err
			}
			hashes := make([][]byte, 0, len(args)-1)
			for _, h := range args[1:] {
				bts, err := hex.DecodeString(h)
				if err != nil {
					return err
				}
				hashes = append(hashes, bts)
			}

			db, err := store.Open(viper.GetString("db"))
			if err != nil {
				return err
			}
			defer common.Close(db)
			u, err := revoke(db, sk, hashes)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tversion %d\n", u.ID, u.Version)
			return nil
		},
	}
}
