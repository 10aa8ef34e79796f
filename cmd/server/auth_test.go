package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// createSessionValue signs owner the way the identity provider does.
func (a *authService) createSessionValue(owner string) string {
	payload := base64.RawURLEncoding.EncodeToString([]byte(owner))
	mac := hmac.New(sha256.New, a.sessionSecret)
	_, _ = mac.Write([]byte(payload))
	signature := hex.EncodeToString(mac.Sum(nil))
	return payload + "." + signature
}
