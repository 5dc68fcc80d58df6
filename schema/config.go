package schema

import (
	"crypto/rand"
	"io"

	"github.com/go-errors/errors"
	"github.com/spf13/viper"

	"github.com/ipv8go/wallet/internal/common"
)

type formatConfig struct {
	Algorithm  string `mapstructure:"algorithm"`
	Parameters `mapstructure:",squash"`
}

// LoadConfig registers every format found under the "formats" key of v, e.g.
//
//	formats:
//	  id_metadata:
//	    algorithm: bonehexact
//	    key_size: 32
//	    hash: sha256_4
func LoadConfig(v *viper.Viper, r *Registry) error {
	var formats map[string]formatConfig
	if err := v.UnmarshalKey("formats", &formats); err != nil {
		return errors.WrapPrefix(err, "failed to parse schema formats", 0)
	}
	for name, f := range formats {
		if f.Algorithm == "" {
			return errors.Errorf("schema %s: missing algorithm", name)
		}
		r.RegisterSchema(name, f.Algorithm, f.Parameters)
	}
	return nil
}

func defaultRandom() io.Reader {
	rnd, err := common.NewRandom()
	if err != nil {
		Logger.Warn("falling back to crypto/rand: ", err)
		return rand.Reader
	}
	return rnd
}
