// Package credential implements the Credential Envelope contract (spec
// §4.I): secrets (webhook auth tokens, bus credentials, external
// data-source keys) are stored sealed, never logged or listed in
// plaintext. The primitive itself is meant to be delegated to the host
// platform; this package provides the one concrete local implementation
// the spec calls for, AES-256-GCM via stdlib `crypto/aes`+`crypto/cipher` —
// swapping the primitive later is a one-function change behind the Sealer
// interface.
package credential

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"

	"github.com/ksd-co/rule-engine-postgres/types"
)

// Sealer is the envelope contract: seal plaintext into an opaque
// ciphertext, open a ciphertext back only from privileged contexts.
// Keeping it an interface is what the spec means by "the primitive itself
// is delegated to the host platform" — callers depend on Sealer, not on
// AESGCMSealer.
type Sealer interface {
	Seal(plaintext []byte) (Envelope, error)
	Open(env Envelope) ([]byte, error)
}

// Envelope is the sealed, storable form of a secret. Only Ciphertext is
// persisted; Prefix/Length are derived for audit views that must never
// expose plaintext (spec §4.I "audit views expose only ciphertext prefix
// and length").
type Envelope struct {
	Ciphertext string `json:"ciphertext"`
}

// Audit is the redacted view safe to surface in listing/audit UIs.
type Audit struct {
	Prefix string `json:"prefix"`
	Length int    `json:"length"`
}

// Describe derives an Audit view from an envelope without decrypting it.
func Describe(env Envelope) Audit {
	raw, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return Audit{}
	}
	prefixLen := 6
	if len(raw) < prefixLen {
		prefixLen = len(raw)
	}
	return Audit{
		Prefix: base64.StdEncoding.EncodeToString(raw[:prefixLen]),
		Length: len(raw),
	}
}

// AESGCMSealer is the concrete local Sealer (spec §4.I's "[EXPANDED]"
// clause). key must be 32 bytes (256-bit, AES-256); it is sourced from a
// startup-time secret slot by the caller and never logged here.
type AESGCMSealer struct {
	gcm cipher.AEAD
}

// NewAESGCMSealer validates key length and builds the GCM AEAD once so
// every Seal/Open call reuses the same cipher instance.
func NewAESGCMSealer(key []byte) (*AESGCMSealer, error) {
	if len(key) != 32 {
		return nil, types.NewError(types.CodeCredentialSealFailed, "key must be 256 bits", map[string]interface{}{"gotBytes": len(key)})
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, types.NewError(types.CodeCredentialSealFailed, err.Error(), nil)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, types.NewError(types.CodeCredentialSealFailed, err.Error(), nil)
	}
	return &AESGCMSealer{gcm: gcm}, nil
}

// Seal authenticates and encrypts plaintext, prefixing the nonce to the
// ciphertext so Open needs nothing beyond the Envelope itself.
func (s *AESGCMSealer) Seal(plaintext []byte) (Envelope, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return Envelope{}, types.NewError(types.CodeCredentialSealFailed, err.Error(), nil)
	}
	sealed := s.gcm.Seal(nonce, nonce, plaintext, nil)
	return Envelope{Ciphertext: base64.StdEncoding.EncodeToString(sealed)}, nil
}

// Open is only meant to be called from privileged contexts (spec §4.I);
// this package does not itself enforce that boundary — it is the caller's
// responsibility to gate who may invoke Open.
func (s *AESGCMSealer) Open(env Envelope) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, types.NewError(types.CodeCredentialOpenFailed, "malformed envelope", nil)
	}
	nonceSize := s.gcm.NonceSize()
	if len(raw) < nonceSize {
		return nil, types.NewError(types.CodeCredentialOpenFailed, "ciphertext shorter than nonce", nil)
	}
	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := s.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, types.NewError(types.CodeCredentialOpenFailed, "authentication failed", nil)
	}
	return plaintext, nil
}

// Store is a thin privileged-context gate around a Sealer: Open requires
// an explicit context flagged as privileged (e.g. the admin CLI, the
// Programmatic API's internal wiring), so a plain reader never accidentally
// calls through to plaintext.
type Store struct {
	sealer Sealer
}

// NewStore wraps sealer behind the privileged-context gate.
func NewStore(sealer Sealer) *Store {
	return &Store{sealer: sealer}
}

type privilegedKey struct{}

// WithPrivilege marks ctx as allowed to call Store.Open.
func WithPrivilege(ctx context.Context) context.Context {
	return context.WithValue(ctx, privilegedKey{}, true)
}

var errNotPrivileged = errors.New("credential: open requires a privileged context")

// Seal stores no state beyond delegating to the underlying Sealer; sealing
// is never privilege-gated since it never exposes plaintext to the caller.
func (s *Store) Seal(plaintext []byte) (Envelope, error) {
	return s.sealer.Seal(plaintext)
}

// Open returns plaintext only when ctx carries WithPrivilege.
func (s *Store) Open(ctx context.Context, env Envelope) ([]byte, error) {
	if ok, _ := ctx.Value(privilegedKey{}).(bool); !ok {
		return nil, errNotPrivileged
	}
	return s.sealer.Open(env)
}
