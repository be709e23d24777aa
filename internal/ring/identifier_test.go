package ring

import (
	"math/rand"
	"testing"
)

func randomID(t *testing.T) ID {
	t.Helper()
	var b [Size]byte
	if _, err := rand.Read(b[:]); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	return ID(b)
}

func TestAdvanceRoundTrip(t *testing.T) {
	tests := []int64{0, 1, -1, 1024, -1024, 1 << 40}

	for _, k := range tests {
		id := randomID(t)
		got := id.Advance(k).Advance(-k)
		if got != id {
			t.Errorf("Advance(%d).Advance(%d) = %s, want %s", k, -k, got, id)
		}
	}
}

func TestInRangeSelfNotInRangeOfItself(t *testing.T) {
	a := randomID(t)
	if a.InRange(a, a) {
		t.Errorf("InRange(a, a) should be false for all identifiers")
	}
}

func TestInRangeStrictOrder(t *testing.T) {
	for i := 0; i < 200; i++ {
		a := randomID(t)
		b := randomID(t)
		self := randomID(t)
		if a == b {
			continue
		}
		if i%4 == 0 {
			self = a // also cover the endpoint cases
		} else if i%4 == 1 {
			self = b
		}

		inAB := self.InRange(a, b)
		inBA := self.InRange(b, a)
		selfIsA := self == a
		selfIsB := self == b

		count := 0
		if inAB {
			count++
		}
		if inBA {
			count++
		}
		if selfIsA {
			count++
		}
		if selfIsB {
			count++
		}
		// a != b by construction above, so exactly one of the four must
		// hold for any self.
		if count != 1 {
			t.Fatalf("exactly one of in_range(a,b), in_range(b,a), self==a, self==b must hold; got count=%d for a=%s b=%s self=%s", count, a, b, self)
		}
	}
}

func TestInRangeBasicWraparound(t *testing.T) {
	a := Zero
	mid := Zero.AddPow2(Bits - 2) // 2^510, far clockwise from zero
	b := Zero.Advance(-1)         // wraps to just before zero

	if !mid.InRange(a, b) {
		t.Errorf("expected %s to be in_range(%s, %s)", mid, a, b)
	}
}

func TestAddPow2MatchesFingerIdealFormula(t *testing.T) {
	id := randomID(t)
	const fingerTableSize = 10
	for i := 0; i < fingerTableSize; i++ {
		got := id.AddPow2(Bits - fingerTableSize + i)
		want := id.AddPow2(502 + i)
		if got != want {
			t.Errorf("finger %d ideal mismatch: %s vs %s", i, got, want)
		}
	}
}

func TestHexRoundTrip(t *testing.T) {
	id := randomID(t)
	parsed, err := FromHex(id.Hex())
	if err != nil {
		t.Fatalf("FromHex: %v", err)
	}
	if parsed != id {
		t.Errorf("FromHex(Hex()) = %s, want %s", parsed, id)
	}
}

func TestFromHexRejectsBadInput(t *testing.T) {
	if _, err := FromHex("not-hex"); err == nil {
		t.Error("expected error for non-hex string")
	}
	if _, err := FromHex("abcd"); err == nil {
		t.Error("expected error for short hex string")
	}
}

func TestZeroIsZero(t *testing.T) {
	if !Zero.IsZero() {
		t.Error("Zero.IsZero() should be true")
	}
	nonZero := Zero.Advance(1)
	if nonZero.IsZero() {
		t.Error("Advance(1) from Zero should not be zero")
	}
}
