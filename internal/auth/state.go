package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// StateSigner はOAuthのstateパラメータをHMAC-SHA256で署名・検証する。
// コールバック時にクッキーのstateと照合することでCSRFを防ぐ。
type StateSigner struct {
	secret []byte
}

// NewStateSigner はStateSignerを生成する。
func NewStateSigner(secret string) *StateSigner {
	return &StateSigner{secret: []byte(secret)}
}

// Generate は暗号的に安全なノンスと署名からなるstateを生成する。
// 形式は "<nonce>.<signature>"。
func (s *StateSigner) Generate() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state nonce: %w", err)
	}
	nonce := hex.EncodeToString(b)
	return nonce + "." + s.sign(nonce), nil
}

// Verify はstateの署名を検証する。
func (s *StateSigner) Verify(state string) bool {
	nonce, sig, ok := strings.Cut(state, ".")
	if !ok || nonce == "" {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(s.sign(nonce)))
}

func (s *StateSigner) sign(nonce string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(nonce))
	return hex.EncodeToString(mac.Sum(nil))
}
