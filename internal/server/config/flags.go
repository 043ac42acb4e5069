package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

var serverFlags = []string{"-a", "-g", "-d", "-b", "-r", "-s", "-k", "-i", "-t", "-e", "-l"}

// parseFlags populates Config fields from command-line flags.
//
//	-a string     HTTP bind address (e.g. ":8080")
//	-g string     gRPC health bind address, empty disables it
//	-d string     PostgreSQL DSN
//	-b string     store backend: postgres, redis or memory
//	-r string     Redis address
//	-s string     access token secret
//	-k string     renewal token secret
//	-i string     token issuer
//	-t duration   access token validity (e.g. "15m")
//	-e duration   renewal token validity (e.g. "168h")
//	-l string     log format: json, text or zap
//
// os.Args is first filtered with flagx.FilterArgs so that flags meant for the
// config file lookup do not trip this set.
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run HTTP server")
	fs.StringVar(&config.GRPCHealthAddr, "g", config.GRPCHealthAddr, "address and port to run gRPC health server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.StoreBackend, "b", config.StoreBackend, "store backend (postgres, redis, memory)")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.AccessSecret, "s", config.AccessSecret, "access token secret")
	fs.StringVar(&config.RenewalSecret, "k", config.RenewalSecret, "renewal token secret")
	fs.StringVar(&config.Issuer, "i", config.Issuer, "token issuer")
	fs.DurationVar(&config.AccessTokenValidityDuration, "t", config.AccessTokenValidityDuration, "access token validity")
	fs.DurationVar(&config.RefreshTokenValidityDuration, "e", config.RefreshTokenValidityDuration, "renewal token validity")
	fs.StringVar(&config.LogFormat, "l", config.LogFormat, "log format (json, text, zap)")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
