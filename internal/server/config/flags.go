package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/volunteerhub/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-n string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-i string   JWT issuer
//	-m string   revocation backend: memory, redis or postgres
//	-x string   Redis URL
//	-z int      revocation cache size
//	-w int      revocation sweep interval, minutes
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-k string   S3 snapshot object key
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-o string   OTLP/gRPC trace collector endpoint (e.g., "otel-collector:4317")
//	-l string   log level
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-n", "-d", "-s", "-i", "-m", "-x", "-z", "-w",
		"-u", "-p", "-b", "-k", "-g", "-e", "-o", "-l",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "n", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.TokenIssuer, "i", config.TokenIssuer, "token issuer")
	fs.StringVar(&config.RevocationBackend, "m", config.RevocationBackend, "revocation backend (memory|redis|postgres)")
	fs.StringVar(&config.RedisURL, "x", config.RedisURL, "redis URL")
	fs.IntVar(&config.RevocationCacheSize, "z", config.RevocationCacheSize, "revocation cache size")

	sweepInterval := fs.Int("w", int(config.RevocationSweepInterval.Minutes()), "revocation sweep interval (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 snapshot bucket")
	fs.StringVar(&config.S3SnapshotKey, "k", config.S3SnapshotKey, "S3 snapshot object key")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.OTLPEndpoint, "o", config.OTLPEndpoint, "OTLP trace endpoint")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level (debug|info|warn|error)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.RevocationSweepInterval = time.Duration(*sweepInterval) * time.Minute
}
