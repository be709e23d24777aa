// Package ring implements the 512-bit identifier algebra the overlay is
// built on: modular advance and the circular in_range predicate that every
// routing decision in internal/chord is phrased in terms of.
package ring

import (
	"encoding/hex"
	"fmt"
	"math/big"
)

// Size is the width of the ring in bytes (512 bits).
const Size = 64

// Bits is the width of the ring in bits.
const Bits = Size * 8

// ID is a 512-bit unsigned ring identifier, stored little-endian.
// Two IDs are equal iff their byte representations are equal.
type ID [Size]byte

// Zero is the distinguished all-zero identifier: the service node's
// address, "unknown" in wire responses, and the identifier bootstraps
// carry until their true id is learned.
var Zero ID

// modulus is 2^512, used for modular advance/distance arithmetic.
var modulus = new(big.Int).Lsh(big.NewInt(1), Bits)

// FromBytes copies a 64-byte slice into an ID. It panics if b is not
// exactly Size bytes — callers at trust boundaries (the wire codec) must
// validate length themselves before calling this.
func FromBytes(b []byte) ID {
	if len(b) != Size {
		panic(fmt.Sprintf("ring: identifier must be %d bytes, got %d", Size, len(b)))
	}
	var id ID
	copy(id[:], b)
	return id
}

// FromHex parses a 128-character hex string into an ID.
func FromHex(s string) (ID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return ID{}, fmt.Errorf("ring: invalid hex identifier: %w", err)
	}
	if len(b) != Size {
		return ID{}, fmt.Errorf("ring: identifier must decode to %d bytes, got %d", Size, len(b))
	}
	return FromBytes(b), nil
}

// Bytes returns the little-endian byte representation.
func (id ID) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, id[:])
	return out
}

// Hex returns the lowercase hex encoding of the identifier's bytes, in
// the same little-endian byte order used on the wire.
func (id ID) Hex() string {
	return hex.EncodeToString(id[:])
}

// String renders a shortened id for logs: first 3 and last 3 bytes.
func (id ID) String() string {
	return hex.EncodeToString(id[:3]) + "..." + hex.EncodeToString(id[len(id)-3:])
}

// IsZero reports whether id is the all-zero identifier.
func (id ID) IsZero() bool {
	return id == Zero
}

// toBig interprets id's bytes as a little-endian unsigned integer.
func (id ID) toBig() *big.Int {
	be := make([]byte, Size)
	for i := 0; i < Size; i++ {
		be[i] = id[Size-1-i]
	}
	return new(big.Int).SetBytes(be)
}

// fromBig renders a non-negative integer (already reduced mod 2^512) back
// into an ID, little-endian.
func fromBig(v *big.Int) ID {
	be := v.Bytes() // big-endian, no leading zeros, len <= Size
	var id ID
	for i := 0; i < len(be); i++ {
		id[i] = be[len(be)-1-i]
	}
	return id
}

// Advance shifts id by k (positive or negative) modulo 2^512.
// Advance(-1) yields the ring-predecessor of id.
func (id ID) Advance(k int64) ID {
	v := id.toBig()
	v.Add(v, big.NewInt(k))
	v.Mod(v, modulus)
	if v.Sign() < 0 {
		v.Add(v, modulus)
	}
	return fromBig(v)
}

// AddPow2 advances id by 2^exp, a convenience used to compute finger-table
// ideal identifiers (self + 2^(502+i)) without constructing a big.Int at
// every call site.
func (id ID) AddPow2(exp int) ID {
	v := id.toBig()
	shift := new(big.Int).Lsh(big.NewInt(1), uint(exp))
	v.Add(v, shift)
	v.Mod(v, modulus)
	return fromBig(v)
}

// InRange reports whether id lies strictly between left and right on the
// ring, moving clockwise from left. Formally, with d(x,y) = (y-x) mod 2^512:
//
//	InRange(left, right) == d(left, id) < d(left, right) && id != left && id != right
//
// This is an open interval: both endpoints are excluded, and it is empty
// when left == right.
func (id ID) InRange(left, right ID) bool {
	if id == left || id == right {
		return false
	}
	a := left.toBig()
	b := id.toBig()
	c := right.toBig()

	distAB := new(big.Int).Sub(b, a)
	distAB.Mod(distAB, modulus)
	distAC := new(big.Int).Sub(c, a)
	distAC.Mod(distAC, modulus)

	return distAB.Cmp(distAC) < 0
}
