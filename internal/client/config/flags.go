package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string     base URL of the server (e.g. "http://127.0.0.1:8080")
//	-f string     path of the local token cache
//	-t duration   HTTP request timeout
//	-i duration   online check interval of the REPL
// Flags lists the command-line flags owned by the CLI configuration.
var Flags = []string{"-a", "-f", "-t", "-i"}

func parseFlags(cfg *Config) error {
	args := flagx.FilterArgs(os.Args[1:], Flags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "server base URL")
	fs.StringVar(&cfg.DatabasePath, "f", cfg.DatabasePath, "local token cache file")
	fs.DurationVar(&cfg.RequestTimeout, "t", cfg.RequestTimeout, "request timeout")
	fs.DurationVar(&cfg.OnlineCheckInterval, "i", cfg.OnlineCheckInterval, "online check interval")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
