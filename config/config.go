// Package config loads the process-wide runtime configuration: the
// Kademlia tuning parameters, timeouts, and listen/storage paths that
// cmd/p2pnode wires into a driver.Driver. It follows the teacher's
// config package layout — a sync.Once-guarded singleton populated from
// the environment via godotenv — generalized from a single private key
// and storage-encryption string to the full parameter set this module
// needs.
package config

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// envPrefix namespaces every environment variable this package reads,
// so a .env file can sit alongside other components' settings without
// collision.
const envPrefix = "P2PCORE_"

// Config is the full set of knobs spec.md §6 and its driver need.
type Config struct {
	TableSize  int
	BucketSize int
	Alpha      int
	K          int

	PingSeedTimeout    time.Duration
	FindPeerTimeout    time.Duration
	LookupRoundTimeout time.Duration
	RefreshMaxAge      time.Duration

	ListenHost     string
	ListenPort     int
	DataDir        string
	PrivateKeyPath string
	KeystorePass   string
}

func defaults() Config {
	return Config{
		TableSize:          160,
		BucketSize:         16,
		Alpha:              3,
		K:                  16,
		PingSeedTimeout:    2 * time.Second,
		FindPeerTimeout:    30 * time.Second,
		LookupRoundTimeout: 5 * time.Second,
		RefreshMaxAge:      time.Hour,
		ListenHost:         "0.0.0.0",
		ListenPort:         30303,
		DataDir:            "./data",
		PrivateKeyPath:     "./data/nodekey",
	}
}

var (
	config     *Config
	configOnce sync.Once
)

// Load populates the singleton from a .env file (if present, via
// godotenv) and the process environment, falling back to the defaults
// above for anything unset. Subsequent calls return the same instance.
func Load() *Config {
	configOnce.Do(func() {
		godotenv.Load()

		c := defaults()
		overrideInt(&c.TableSize, envPrefix+"TABLE_SIZE")
		overrideInt(&c.BucketSize, envPrefix+"BUCKET_SIZE")
		overrideInt(&c.Alpha, envPrefix+"ALPHA")
		c.K = c.BucketSize
		overrideInt(&c.K, envPrefix+"K")
		overrideDuration(&c.PingSeedTimeout, envPrefix+"PING_SEED_TIMEOUT")
		overrideDuration(&c.FindPeerTimeout, envPrefix+"FIND_PEER_TIMEOUT")
		overrideDuration(&c.LookupRoundTimeout, envPrefix+"LOOKUP_ROUND_TIMEOUT")
		overrideDuration(&c.RefreshMaxAge, envPrefix+"REFRESH_MAX_AGE")
		overrideString(&c.ListenHost, envPrefix+"LISTEN_HOST")
		overrideInt(&c.ListenPort, envPrefix+"LISTEN_PORT")
		overrideString(&c.DataDir, envPrefix+"DATA_DIR")
		overrideString(&c.PrivateKeyPath, envPrefix+"PRIVATE_KEY_PATH")
		overrideString(&c.KeystorePass, envPrefix+"KEYSTORE_PASSPHRASE")

		config = &c
	})
	return config
}

// Get returns the singleton, loading it on first use.
func Get() *Config {
	if config == nil {
		return Load()
	}
	return config
}

func overrideString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return
	}
	*dst = n
}

func overrideDuration(dst *time.Duration, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return
	}
	*dst = d
}
