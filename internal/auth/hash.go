package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// NewRawToken returns a fresh opaque secret for emailed links and refresh
// records. 32 random bytes, base64url without padding.
func NewRawToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Peppers holds one derived key per single-use token class so a leak of one
// table's hashes cannot be replayed against another table.
type Peppers struct {
	MagicLink   []byte
	Refresh     []byte
	EmailChange []byte
}

// DerivePeppers expands the master secret into the per-class keys. The info
// strings are part of the storage format and must not change.
func DerivePeppers(master string) (Peppers, error) {
	var p Peppers
	for _, d := range []struct {
		info string
		dst  *[]byte
	}{
		{"magic-link", &p.MagicLink},
		{"refresh", &p.Refresh},
		{"email-change", &p.EmailChange},
	} {
		key := make([]byte, 32)
		r := hkdf.New(sha256.New, []byte(master), nil, []byte(d.info))
		if _, err := io.ReadFull(r, key); err != nil {
			return Peppers{}, fmt.Errorf("derive %s pepper: %w", d.info, err)
		}
		*d.dst = key
	}
	return p, nil
}

// HashToken is the stored form of a raw token: hex HMAC-SHA256 under the
// class pepper. Lookups compare hashes, never raw values.
func HashToken(pepper []byte, raw string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}
