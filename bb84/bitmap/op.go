package bitmap

import "fmt"

// XOr returns the bitwise XOR of two bitmaps. The shorter operand is padded
// with zeros.
func XOr(a, b Dense) Dense {
	short, long := a, b
	if b.len < a.len {
		short, long = b, a
	}
	r := Dense{
		bits: make([]byte, 0, BytesFor(long.len)),
		len:  long.len,
	}
	for i := range short.bits {
		r.bits = append(r.bits, a.bits[i]^b.bits[i])
	}
	r.bits = append(r.bits, long.bits[len(short.bits):]...)
	return r
}

// XNor returns the bitwise equality of two bitmaps. The shorter operand is
// padded with zeros.
func XNor(a, b Dense) Dense {
	r := XOr(a, b)
	for i := range r.bits {
		r.bits[i] = ^r.bits[i]
	}
	r.clearTail()
	return r
}

// Slice returns a copy of bits [start, end) of d.
func Slice(d Dense, start, end int) (Dense, error) {
	if end > d.len {
		return Dense{}, fmt.Errorf("slicing bitmap of len %d up to %d", d.len, end)
	}
	if start < 0 {
		return Dense{}, fmt.Errorf("slicing bitmap with negative start: %d", start)
	}
	if end < start {
		return Dense{}, fmt.Errorf("slicing bitmap to negative length: %d", end-start)
	}
	r := Dense{bits: make([]byte, 0, BytesFor(end-start))}
	for i := start; i < end; i++ {
		r.AppendBit(d.Get(i))
	}
	return r, nil
}

// Uint returns the value of d read as an unsigned integer, first bit most
// significant. Bitmaps longer than 64 bits keep only their trailing 64 bits.
func Uint(d Dense) uint64 {
	var v uint64
	for i := 0; i < d.len; i++ {
		v <<= 1
		if d.Get(i) {
			v |= 1
		}
	}
	return v
}
