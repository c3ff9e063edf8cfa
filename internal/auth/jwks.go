package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"pacecal/internal/cache"
)

const keyCacheTTL = 10 * time.Minute

// jwksDocument is the wire shape of a JWKS endpoint response.
type jwksDocument struct {
	Keys []jwksKey `json:"keys"`
}

type jwksKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// KeySet fetches RSA signing keys from a JWKS endpoint and caches them so
// steady-state verification does not hit the identity provider.
type KeySet struct {
	url    string
	client *http.Client
	keys   *cache.TTLCache[*rsa.PublicKey]
}

// NewKeySet builds a key set for the given JWKS URL. A nil client uses a
// default with a short timeout.
func NewKeySet(url string, client *http.Client) *KeySet {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &KeySet{
		url:    url,
		client: client,
		keys:   cache.New[*rsa.PublicKey](16, keyCacheTTL),
	}
}

// Key returns the RSA public key for a key ID, fetching the JWKS document
// on cache miss.
func (ks *KeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if key, ok := ks.keys.Get(kid); ok {
		return key, nil
	}
	if err := ks.refresh(ctx); err != nil {
		return nil, err
	}
	key, ok := ks.keys.Get(kid)
	if !ok {
		return nil, fmt.Errorf("no signing key with kid %q", kid)
	}
	return key, nil
}

func (ks *KeySet) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ks.url, nil)
	if err != nil {
		return fmt.Errorf("build jwks request: %w", err)
	}
	resp, err := ks.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks endpoint returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read jwks body: %w", err)
	}

	var doc jwksDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("decode jwks: %w", err)
	}

	stored := 0
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		pub, err := rsaKeyFromJWK(k)
		if err != nil {
			continue
		}
		ks.keys.Set(k.Kid, pub)
		stored++
	}
	if stored == 0 {
		return fmt.Errorf("jwks document at %s contained no usable RSA keys", ks.url)
	}
	return nil
}

// rsaKeyFromJWK rebuilds an RSA public key from base64url modulus and
// exponent fields.
func rsaKeyFromJWK(k jwksKey) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	if e <= 0 {
		return nil, fmt.Errorf("invalid exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}
