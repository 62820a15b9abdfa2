package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/cryptshare/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8000")
//	-d string   PostgreSQL DSN
//	-f string   blob data directory
//	-b string   blob backend ("disk" or "s3")
//	-x int      trusted reverse-proxy depth
//	-m int      maximum single-file size, bytes
//	-q int      maximum aggregate quota, bytes
//	-u int      maximum live uploads per client identity
//	-l int      daily request limit per client identity
//	-i int      reconciler sweep interval, minutes
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. The sweep
// interval is accepted as an integer in minutes and then converted to a
// time.Duration.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-f", "-b", "-x", "-m", "-q", "-u", "-l", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.DataDir, "f", config.DataDir, "blob data directory")
	fs.StringVar(&config.BlobBackend, "b", config.BlobBackend, "blob backend (disk or s3)")
	fs.IntVar(&config.ProxyDepth, "x", config.ProxyDepth, "trusted reverse-proxy depth")
	fs.Int64Var(&config.MaximumFilesize, "m", config.MaximumFilesize, "maximum single-file size, bytes")
	fs.Int64Var(&config.MaximumQuota, "q", config.MaximumQuota, "maximum aggregate quota, bytes")
	fs.IntVar(&config.MaximumUploadsPerIdentity, "u", config.MaximumUploadsPerIdentity, "maximum live uploads per identity")

	dailyRequestLimit := fs.Uint64("l", config.DailyRequestLimit, "daily request limit per identity")
	sweepIntervalMinutes := fs.Int("i", int(config.SweepInterval.Minutes()), "sweep interval (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.DailyRequestLimit = *dailyRequestLimit
	config.SweepInterval = time.Duration(*sweepIntervalMinutes) * time.Minute
}
