// selftest.go runs a lightweight consistency check on freshly generated
// ephemeral key material: one ECDH shared-secret computation per classical
// group, which would catch a broken build before any network bytes are
// sent.
package crypto

import (
	"github.com/fenwick-labs/gotls/internal/constants"
)

// PairwiseConsistencyCheck verifies that a freshly generated KeyPair can
// compute a shared secret for X25519, P-256 and P-384 against a peer
// KeyPair derived from an all-zero seed. The X25519+Kyber768 hybrid group
// is not checked, and the handshake does not call this function.
func PairwiseConsistencyCheck(kp *KeyPair) error {
	for _, group := range []constants.NamedGroup{
		constants.GroupX25519,
		constants.GroupSecp256r1,
		constants.GroupSecp384r1,
	} {
		peer, err := NewKeyPair(make([]byte, constants.HandshakeSeedSize))
		if err != nil {
			return err
		}
		peerPub, err := peer.PublicKey(group)
		if err != nil {
			return err
		}
		if _, err := kp.PreMasterSecret(group, peerPub); err != nil {
			return err
		}
	}
	return nil
}
