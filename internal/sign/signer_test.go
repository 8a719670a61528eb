package sign

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestHashDocumentDeterministic(t *testing.T) {
	a := HashDocument("contract body")
	b := HashDocument("contract body")
	if a != b {
		t.Fatal("same text must hash identically")
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	if a == HashDocument("different body") {
		t.Fatal("different text must hash differently")
	}
}

func TestLocalSignerSignAndVerify(t *testing.T) {
	s, err := NewLocalSigner()
	if err != nil {
		t.Fatalf("NewLocalSigner: %v", err)
	}

	hash := HashDocument("contract body")
	sig, err := s.Sign(context.Background(), hash)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if sig.Hash != hash {
		t.Fatalf("signature must carry the signed hash, got %s", sig.Hash)
	}
	if !s.Verify(hash, sig.Signature) {
		t.Fatal("signature must verify")
	}
	if s.Verify(HashDocument("tampered"), sig.Signature) {
		t.Fatal("signature must not verify against another hash")
	}
}

func TestLocalSignerEmptyHash(t *testing.T) {
	s, err := NewLocalSigner()
	if err != nil {
		t.Fatalf("NewLocalSigner: %v", err)
	}
	_, err = s.Sign(context.Background(), "")
	if !errors.Is(err, ErrSigningFailed) {
		t.Fatalf("expected ErrSigningFailed, got %v", err)
	}
}

func TestLocalSignerCancelledContext(t *testing.T) {
	s, err := NewLocalSigner()
	if err != nil {
		t.Fatalf("NewLocalSigner: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Sign(ctx, HashDocument("contract body"))
	if !errors.Is(err, ErrSigningFailed) {
		t.Fatalf("expected ErrSigningFailed, got %v", err)
	}
}

func TestLocalSignerFromSeed(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, 32)
	s1, err := NewLocalSignerFromSeed(seed)
	if err != nil {
		t.Fatalf("NewLocalSignerFromSeed: %v", err)
	}
	s2, err := NewLocalSignerFromSeed(seed)
	if err != nil {
		t.Fatalf("NewLocalSignerFromSeed: %v", err)
	}

	hash := HashDocument("contract body")
	sig1, err := s1.Sign(context.Background(), hash)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !s2.Verify(hash, sig1.Signature) {
		t.Fatal("seeded signers must produce cross-verifiable signatures")
	}

	if _, err := NewLocalSignerFromSeed([]byte{1, 2, 3}); !errors.Is(err, ErrSigningFailed) {
		t.Fatalf("expected ErrSigningFailed for short seed, got %v", err)
	}
}
