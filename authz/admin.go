package authz

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// HashAdminRequest hashes an admin HTTP request for signing: the keccak of
// method, path and body, wrapped in the EIP-191 personal-message envelope so
// any standard wallet signer can produce the signature.
func HashAdminRequest(method, path string, body []byte) []byte {
	digest := crypto.Keccak256([]byte(method), []byte(path), body)
	return accounts.TextHash(digest)
}

// SignAdminRequest signs an admin request with the admin key.
func SignAdminRequest(method, path string, body []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	return signDigest(HashAdminRequest(method, path, body), key)
}

// RecoverAdminRequest recovers the signer of an admin request.
func RecoverAdminRequest(method, path string, body, sig []byte) (common.Address, error) {
	return recoverDigest(HashAdminRequest(method, path, body), sig)
}
