package broker

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Credentials carries the API key and the ed25519 signing key derived from
// the base64-encoded 32-byte seed the venue issues.
type Credentials struct {
	APIKey     string
	PrivateKey ed25519.PrivateKey
}

// LoadCredentialsFromEnv reads BROKER_API_KEY and BROKER_PRIVATE_KEY_B64,
// loading a .env file first when present.
func LoadCredentialsFromEnv() (Credentials, error) {
	_ = godotenv.Load() // best-effort

	apiKey := os.Getenv("BROKER_API_KEY")
	if apiKey == "" {
		return Credentials{}, fmt.Errorf("BROKER_API_KEY not set")
	}
	encoded := os.Getenv("BROKER_PRIVATE_KEY_B64")
	if encoded == "" {
		return Credentials{}, fmt.Errorf("BROKER_PRIVATE_KEY_B64 not set")
	}

	seed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Credentials{}, fmt.Errorf("decode private key: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return Credentials{}, fmt.Errorf("private key seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}

	return Credentials{APIKey: apiKey, PrivateKey: ed25519.NewKeyFromSeed(seed)}, nil
}
