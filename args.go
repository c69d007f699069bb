package main

import (
	"crypto/ed25519"
	"encoding/base64"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"auctiond/api"
)

func ParseArgs() Args {
	// server config
	pflag.String("server-url", "0.0.0.0:8080", "")
	pflag.String("operator", "", "")

	// auth config
	pflag.String("auth-issuer", "auctiond", "")
	pflag.String("auth-signing-seed", "", "base64 ed25519 seed")
	pflag.Duration("auth-token-ttl", 3*time.Hour, "")

	// auction config
	pflag.Uint64("min-bid-increment", 0, "")
	pflag.Uint8("asset-decimals", 0, "")

	// db config
	pflag.String("db-user", "", "")
	pflag.String("db-password", "", "")
	pflag.String("db-host", "", "")
	pflag.Int("db-port", 5432, "")
	pflag.String("db-database", "", "")
	pflag.String("db-schema", "", "")

	// bind pflag to viper
	pflag.Parse()
	viper.BindPFlags(pflag.CommandLine)
	viper.AutomaticEnv()
	viper.SetEnvPrefix("AUCTIOND")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// initial arguments
	return Args{
		ServerURL: viper.GetString("server-url"),
		ServerConfig: api.ServerConfig{
			Operator: viper.GetString("operator"),
			Auth: api.AuthConfig{
				Issuer:     viper.GetString("auth-issuer"),
				PrivateKey: signingKey(viper.GetString("auth-signing-seed")),
				TokenTTL:   viper.GetDuration("auth-token-ttl"),
			},
			Auction: api.AuctionConfig{
				MinBidIncrement: viper.GetUint64("min-bid-increment"),
				AssetDecimals:   uint8(viper.GetUint("asset-decimals")),
			},
			DB: api.DBConfig{
				User:     viper.GetString("db-user"),
				Password: viper.GetString("db-password"),
				Host:     viper.GetString("db-host"),
				Port:     viper.GetInt("db-port"),
				Database: viper.GetString("db-database"),
				Schema:   viper.GetString("db-schema"),
			},
		},
	}
}

// signingKey derives the Ed25519 signing key from the configured seed.
// Without a seed the key is nil and Args.Validate rejects the configuration.
func signingKey(seed string) ed25519.PrivateKey {
	if seed == "" {
		return nil
	}
	raw, err := base64.StdEncoding.DecodeString(seed)
	if err != nil || len(raw) != ed25519.SeedSize {
		return nil
	}
	return ed25519.NewKeyFromSeed(raw)
}

type Args struct {
	ServerURL    string
	ServerConfig api.ServerConfig
}

func (args Args) Validate() bool {
	return args.ServerURL != "" &&
		args.ServerConfig.Operator != "" &&
		args.ServerConfig.Auth.PrivateKey != nil
}
