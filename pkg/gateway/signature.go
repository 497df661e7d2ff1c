package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns hex(HMAC-SHA256(secret, orderRef + "|" + paymentRef)), the
// signature the gateway attaches to a payment callback.
func Sign(secret, orderRef, paymentRef string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderRef + "|" + paymentRef))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares the provided signature against the expected one in
// constant time.
func VerifySignature(secret, orderRef, paymentRef, signature string) bool {
	expected := Sign(secret, orderRef, paymentRef)
	return hmac.Equal([]byte(expected), []byte(signature))
}
