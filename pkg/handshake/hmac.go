package handshake

import (
	"crypto/hmac"
	"hash"
)

// hmacSum computes HMAC-hashFn(key, message), used for the TLS 1.3
// Finished messages (RFC 8446 §4.4.4). CBC-HMAC record MACs are computed
// in pkg/crypto and do not go through this helper.
func hmacSum(hashFn func() hash.Hash, key, message []byte) []byte {
	mac := hmac.New(hashFn, key)
	mac.Write(message)
	return mac.Sum(nil)
}
