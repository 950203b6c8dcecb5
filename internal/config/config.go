package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config contains keybox configuration parameters.
type Config struct {
	LogLevel int      `env:"LOG_LEVEL" envDefault:"0"`
	Keybox   Keybox   `envPrefix:"KEYBOX_"`
	KDF      KDF      `envPrefix:"KDF_"`
	Random   Random   `envPrefix:"RANDOM_"`
	Database Database `envPrefix:"DATABASE_"`
	Storage  Storage  `envPrefix:"MINIO_"`
}

// Keybox contains container location and passphrase parameters.
// Passphrases are removed from the environment once read.
type Keybox struct {
	DBPath              string `env:"DB_PATH" envDefault:"keybox.yml"`
	Format              string `env:"FORMAT" envDefault:"yaml"`
	Passphrase          string `env:"PASSPHRASE,unset"`
	NewPassphrase       string `env:"NEW_PASSPHRASE,unset"`
	MinPassphraseLength int    `env:"MIN_PASSPHRASE_LENGTH" envDefault:"4"`
}

// KDF contains key derivation and cipher parameters for new containers.
// An empty digest selects the first available one.
type KDF struct {
	Iterations int    `env:"ITERATIONS" envDefault:"2048"`
	Digest     string `env:"DIGEST"`
	Cipher     string `env:"CIPHER" envDefault:"aes256"`
}

// Random overrides the entropy device.
type Random struct {
	Device string `env:"DEVICE"`
}

// Database contains snapshot archive connection parameters. An empty DSN
// disables the archive.
type Database struct {
	DSN string `env:"DSN"`
}

// Storage contains object storage backup parameters.
type Storage struct {
	Enabled   bool   `env:"ENABLED" envDefault:"false"`
	Endpoint  string `env:"ENDPOINT" envDefault:"localhost:9000"`
	AccessKey string `env:"ACCESS_KEY" envDefault:"keybox-access-key"`
	SecretKey string `env:"SECRET_KEY" envDefault:"keybox-secret-key"`
	Bucket    string `env:"BUCKET_NAME" envDefault:"keybox-backups"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
	Retain    int    `env:"RETAIN" envDefault:"10"`
}

// NewConfig loads configuration from environment variables.
func NewConfig() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}
