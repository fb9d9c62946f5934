package config

import (
	"flag"
	"time"

	"github.com/secure-doc/imagey-cloud/internal/flagx"
)

var knownFlags = []string{
	"-a", "-h", "-s", "-t", "-r", "-l", "-k", "-f", "-d", "-i",
	"-o", "-u", "-p", "-b", "-g", "-e", "-m", "-n", "-x", "-y", "-q", "-v",
}

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-h string   gRPC health bind address (e.g., ":50051")
//	-s string   base64 HMAC secret key
//	-t int      link token validity, minutes
//	-r int      session token validity, minutes
//	-l string   public base URL used in mailed links
//	-k string   key storage backend (filesystem|postgres|redis)
//	-f string   filesystem root path
//	-d string   PostgreSQL DSN
//	-i string   Redis address
//	-o string   blob backend (filesystem|s3)
//	-u -p -b -g -e  S3 user, password, bucket, region, base endpoint
//	-m -n -x -y     SMTP host, port, user, password
//	-q string   ACME challenge directory
//	-v string   log level
//
// Duration flags are accepted as integer minutes and only override the
// current value when given.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run http server")
	fs.StringVar(&config.EndpointAddrGRPC, "h", config.EndpointAddrGRPC, "address and port to run grpc health server")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "base64 secret key")

	linkTokenValidity := fs.Int("t", int(config.LinkTokenValidityDuration.Minutes()), "link_token_validity_duration (in minutes)")
	sessionTokenValidity := fs.Int("r", int(config.SessionTokenValidityDuration.Minutes()), "session_token_validity_duration (in minutes)")

	fs.StringVar(&config.PublicBaseURL, "l", config.PublicBaseURL, "public base url")
	fs.StringVar(&config.StorageBackend, "k", config.StorageBackend, "key storage backend")
	fs.StringVar(&config.RootPath, "f", config.RootPath, "filesystem root path")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddr, "i", config.RedisAddr, "redis address")
	fs.StringVar(&config.BlobBackend, "o", config.BlobBackend, "document content backend")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.SMTPHost, "m", config.SMTPHost, "SMTP host")
	fs.IntVar(&config.SMTPPort, "n", config.SMTPPort, "SMTP port")
	fs.StringVar(&config.SMTPUser, "x", config.SMTPUser, "SMTP user")
	fs.StringVar(&config.SMTPPassword, "y", config.SMTPPassword, "SMTP password")

	fs.StringVar(&config.AcmeChallengePath, "q", config.AcmeChallengePath, "ACME challenge directory")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.LinkTokenValidityDuration = time.Duration(*linkTokenValidity) * time.Minute
		case "r":
			config.SessionTokenValidityDuration = time.Duration(*sessionTokenValidity) * time.Minute
		}
	})
}
