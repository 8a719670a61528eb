package sign

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// #region errors
// ErrSigningFailed marks a failed signing attempt. The workflow records it
// and stays at the approval checkpoint so the caller can retry.
var ErrSigningFailed = errors.New("signing failed")

// #endregion errors

// #region types
// Signature pairs a document hash with the signature bytes over it.
type Signature struct {
	Hash      string `json:"hash"`
	Signature []byte `json:"signature"`
}

// Service is the signing collaborator invoked at the approval checkpoint.
// Calls need not be deterministic, but the engine guards against duplicate
// invocation by checking for a recorded signature first.
type Service interface {
	Sign(ctx context.Context, documentHash string) (Signature, error)
}

// #endregion types

// #region hash
// HashDocument returns the hex SHA-256 of the document text. Computed once
// at ingest so later stages never need the raw document again.
func HashDocument(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// #endregion hash

// #region local-signer
// LocalSigner signs document hashes with an Ed25519 key held in memory.
type LocalSigner struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewLocalSigner generates a fresh keypair.
func NewLocalSigner() (*LocalSigner, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: generate key: %v", ErrSigningFailed, err)
	}
	return &LocalSigner{priv: priv, pub: pub}, nil
}

// NewLocalSignerFromSeed derives the keypair from a 32-byte seed, for
// deployments that must produce verifiable signatures across restarts.
func NewLocalSignerFromSeed(seed []byte) (*LocalSigner, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: seed must be %d bytes, got %d", ErrSigningFailed, ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &LocalSigner{priv: priv, pub: priv.Public().(ed25519.PublicKey)}, nil
}

// Sign signs the document hash.
func (s *LocalSigner) Sign(ctx context.Context, documentHash string) (Signature, error) {
	if err := ctx.Err(); err != nil {
		return Signature{}, fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}
	if documentHash == "" {
		return Signature{}, fmt.Errorf("%w: empty document hash", ErrSigningFailed)
	}
	sig := ed25519.Sign(s.priv, []byte(documentHash))
	return Signature{Hash: documentHash, Signature: sig}, nil
}

// Verify reports whether sig is a valid signature over documentHash.
func (s *LocalSigner) Verify(documentHash string, sig []byte) bool {
	return ed25519.Verify(s.pub, []byte(documentHash), sig)
}

// #endregion local-signer
