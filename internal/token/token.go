package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/hkdf"

	"rental-portal/internal/apperr"
)

// DefaultContext is the purpose used when callers pass an empty context.
const DefaultContext = "moderation"

const infoPrefix = "rental-portal/user-token/"

// Generator derives stable, one-way user tokens. Each context gets its own
// HKDF subkey, so tokens for the same user cannot be linked across purposes
// without the secret.
type Generator struct {
	secret []byte
}

// New builds a Generator. An empty secret is a configuration error and should
// stop the process at startup.
func New(secret string) (*Generator, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, apperr.Configuration("privacy token secret is not set")
	}
	return &Generator{secret: []byte(secret)}, nil
}

// MakeUserToken returns the hex token for (userID, context).
func (g *Generator) MakeUserToken(userID uint, context string) string {
	if context == "" {
		context = DefaultContext
	}

	mac := hmac.New(sha256.New, g.subkey(context))
	mac.Write([]byte(strconv.FormatUint(uint64(userID), 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *Generator) subkey(context string) []byte {
	key := make([]byte, sha256.Size)
	r := hkdf.New(sha256.New, g.secret, nil, []byte(infoPrefix+context))
	// A 32 byte read from HKDF-SHA256 cannot fail.
	_, _ = io.ReadFull(r, key)
	return key
}
