package token

import (
	"crypto/rsa"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// KeyPair is the RSA key pair of one token type.
type KeyPair struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// Options configures signing and verification of one token type.
type Options struct {
	Algorithm string
	TTL       time.Duration
	Issuer    string
	Audience  string
	Keys      KeyPair
}

// ParseKeyPair decodes PEM-encoded RSA keys.
func ParseKeyPair(privatePEM, publicPEM []byte) (KeyPair, error) {
	priv, err := jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
	if err != nil {
		return KeyPair{}, fmt.Errorf("failed to parse RSA private key: %w", err)
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
	if err != nil {
		return KeyPair{}, fmt.Errorf("failed to parse RSA public key: %w", err)
	}
	return KeyPair{Private: priv, Public: pub}, nil
}

// LoadKeyPair reads and decodes a PEM key pair from disk.
func LoadKeyPair(privatePath, publicPath string) (KeyPair, error) {
	privatePEM, err := os.ReadFile(privatePath)
	if err != nil {
		return KeyPair{}, fmt.Errorf("failed to read private key %s: %w", privatePath, err)
	}
	publicPEM, err := os.ReadFile(publicPath)
	if err != nil {
		return KeyPair{}, fmt.Errorf("failed to read public key %s: %w", publicPath, err)
	}
	return ParseKeyPair(privatePEM, publicPEM)
}

func signingMethod(alg string) (jwt.SigningMethod, error) {
	if alg == "" {
		alg = jwt.SigningMethodRS256.Alg()
	}
	method := jwt.GetSigningMethod(alg)
	switch method.(type) {
	case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS:
		return method, nil
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q: an RSA algorithm is required", alg)
	}
}
