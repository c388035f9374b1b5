package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	jobKeyPrefix  = "job:"
	linkKeyPrefix = "linkhash:"
	linkHashLen   = 24
)

// DeriveKey returns the identity key for a listing. The posting id wins over
// the link whenever both are present. ok is false when neither is usable.
// A whitespace-only value counts as absent; a usable link is hashed exactly as
// given.
func DeriveKey(externalID, link string) (key string, ok bool) {
	if id := strings.TrimSpace(externalID); id != "" {
		return jobKeyPrefix + id, true
	}
	if strings.TrimSpace(link) != "" {
		return linkKeyPrefix + linkHash(link), true
	}
	return "", false
}

func linkHash(link string) string {
	h := sha256.Sum256([]byte(link))
	return hex.EncodeToString(h[:])[:linkHashLen]
}
