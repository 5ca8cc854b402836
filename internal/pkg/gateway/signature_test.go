package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func signManifest(t *testing.T, secret, dataID, requestID, ts string) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "shhh"
	v1 := signManifest(t, secret, "pay-1", "req-1", "1717977600")
	header := fmt.Sprintf("ts=1717977600,v1=%s", v1)

	assert.True(t, VerifyWebhookSignature(header, "req-1", "pay-1", secret))
	assert.False(t, VerifyWebhookSignature(header, "req-2", "pay-1", secret))
	assert.False(t, VerifyWebhookSignature(header, "req-1", "pay-2", secret))
	assert.False(t, VerifyWebhookSignature(header, "req-1", "pay-1", "other"))
}

func TestVerifyWebhookSignatureUppercaseDataID(t *testing.T) {
	// The manifest uses the lowercased data id regardless of payload casing.
	secret := "shhh"
	v1 := signManifest(t, secret, "abc123", "req-1", "1717977600")
	header := fmt.Sprintf("ts=1717977600,v1=%s", v1)

	assert.True(t, VerifyWebhookSignature(header, "req-1", "ABC123", secret))
}

func TestVerifyWebhookSignatureMalformedHeader(t *testing.T) {
	assert.False(t, VerifyWebhookSignature("", "req-1", "pay-1", "shhh"))
	assert.False(t, VerifyWebhookSignature("v1=zzzz", "req-1", "pay-1", "shhh"))
	assert.False(t, VerifyWebhookSignature("ts=1,v1=nothex", "req-1", "pay-1", "shhh"))
}

func TestVerifyWebhookSignatureNoSecretConfigured(t *testing.T) {
	assert.True(t, VerifyWebhookSignature("whatever", "req-1", "pay-1", ""))
}
