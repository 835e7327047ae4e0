package apikey

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/railzwaylabs/waterline/internal/config"
)

// HashAPIKey returns the hex sha256 digest stored in auth.api_key_hashes.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}

// Verifier authenticates automation callers such as an external cron.
type Verifier struct {
	hashes [][]byte
}

func NewVerifier(cfg config.Config) *Verifier {
	v := &Verifier{}
	for _, h := range cfg.Auth.APIKeyHashes {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		v.hashes = append(v.hashes, []byte(h))
	}
	return v
}

func (v *Verifier) Enabled() bool {
	return v != nil && len(v.hashes) > 0
}

func (v *Verifier) Verify(raw string) bool {
	if !v.Enabled() || strings.TrimSpace(raw) == "" {
		return false
	}
	candidate := []byte(HashAPIKey(raw))
	matched := 0
	for _, h := range v.hashes {
		matched |= subtle.ConstantTimeCompare(candidate, h)
	}
	return matched == 1
}
