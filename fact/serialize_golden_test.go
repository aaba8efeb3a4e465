package fact

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TestSerializeCanonicalFormMatchesGoldenFixture pins the exact byte shape
// of canonical serialization (spec §3 I3) against a checked-in fixture, so
// a future change to key ordering, number formatting, or string escaping
// shows up as a diff instead of a silently different "equally valid" JSON.
func TestSerializeCanonicalFormMatchesGoldenFixture(t *testing.T) {
	f := New()
	f.Entity("Order").Set("id", String("ord-1"))
	f.Entity("Order").Set("total", Int64(1500))
	f.Entity("Order").Set("discount", Float64(150))
	f.Entity("Customer").Set("tier", String("gold"))

	out, err := f.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	g := goldie.New(t)
	g.Assert(t, "canonical_order_serialization", []byte(out))
}
