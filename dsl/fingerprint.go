package dsl

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/mitchellh/hashstructure/v2"
)

// fingerprintDomain separates rule-program content hashes from any other
// identity hash computed elsewhere in the system, following the
// domain-separated SHA-256 framing pattern (hash = SHA256(domain||0x00||data)).
const fingerprintDomain = "rule-engine/program-fingerprint/v1"

// Fingerprint is a 256-bit hash of a RuleProgram's canonical AST form (spec
// §3: "not of source text, so whitespace/comments don't affect identity").
// Two RuleProgram values built from syntactically different but semantically
// identical sources must hash identically, which is why Fingerprint hashes
// the AST struct graph rather than any text.
type Fingerprint [32]byte

func (f Fingerprint) String() string { return hex.EncodeToString(f[:]) }

// ComputeFingerprint hashes a RuleProgram's structural content with
// hashstructure (field-by-field, order-sensitive for slices — which is
// exactly right here, since Rule order affects agenda insertion order and
// therefore evaluation semantics) and frames the result with a
// domain-separated SHA-256 so the fingerprint space is namespaced against
// accidental collision with unrelated hashes in the system.
func ComputeFingerprint(p RuleProgram) (Fingerprint, error) {
	structHash, err := hashstructure.Hash(p, hashstructure.FormatV2, nil)
	if err != nil {
		return Fingerprint{}, err
	}

	h := sha256.New()
	h.Write([]byte(fingerprintDomain))
	h.Write([]byte{0x00})
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(structHash >> (8 * i))
	}
	h.Write(buf[:])

	var out Fingerprint
	copy(out[:], h.Sum(nil))
	return out, nil
}
