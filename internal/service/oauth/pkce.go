package oauth

import (
	"crypto/sha256"
	"encoding/base64"

	"github.com/artfusion-app/artfusion-cli/internal/utils"
)

const (
	// codeVerifierByteCount yields a verifier well inside RFC 7636's
	// 43-128 character bounds.
	codeVerifierByteCount = 64

	// codeChallengeMethod is the only challenge derivation the backend accepts.
	codeChallengeMethod = "s256"
)

// pkcePair holds the verifier kept locally and the challenge sent to the
// provider.
type pkcePair struct {
	Verifier  string
	Challenge string
}

// newPKCEPair generates a fresh verifier and derives its challenge.
func newPKCEPair() (*pkcePair, error) {
	verifier, err := utils.RandomURLSafeString(codeVerifierByteCount)
	if err != nil {
		return nil, err
	}

	return &pkcePair{
		Verifier:  verifier,
		Challenge: deriveCodeChallenge(verifier),
	}, nil
}

// deriveCodeChallenge computes the S256 challenge for a verifier:
// base64url(SHA-256(verifier)) without padding.
func deriveCodeChallenge(verifier string) string {
	digest := sha256.Sum256([]byte(verifier))

	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(digest[:])
}
