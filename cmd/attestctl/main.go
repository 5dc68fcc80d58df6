// Command attestctl manages attestations stored in a local wallet database: it generates
// keys, attests values, runs local proving rounds and signs revocation updates.
package main

import (
	"os"
	"strings"

	"github.com/go-errors/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ipv8go/wallet"
	"github.com/ipv8go/wallet/schema"
)

const envPrefix = "ATTESTCTL"

var rootCmd = &cobra.Command{
	Use:          "attestctl",
	Short:        "Manage privacy-preserving identity attestations",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(viper.GetString("log-level"))
		if err != nil {
			return err
		}
		wallet.Logger.SetLevel(level)
		if cfg := viper.GetString("config"); cfg != "" {
			viper.SetConfigFile(cfg)
			if err := viper.ReadInConfig(); err != nil {
				return errors.WrapPrefix(err, "reading "+cfg, 0)
			}
		}
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "YAML or JSON file with additional schema formats")
	flags.String("db", "wallet.db", "attestation database")
	flags.String("log-level", "warning", "log level")
	for _, name := range []string{"config", "db", "log-level"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(schemasCmd(), keygenCmd(), attestCmd(), proveCmd(), authorityKeyCmd(), revokeCmd())
}

// registry returns the default formats plus those of the config file.
func registry() (*schema.Registry, error) {
	r := schema.NewRegistry()
	r.RegisterDefaults()
	if err := schema.LoadConfig(viper.GetViper(), r); err != nil {
		return nil, err
	}
	return r, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
