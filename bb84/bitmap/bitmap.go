// Package bitmap provides utilities for operating on densely-packed arrays of
// booleans.
package bitmap

import "math/bits"

const byteSize = 8

// Select selects a subset of bits from data, according to which bits are set in
// mask.
func Select(data, mask Dense) Dense {
	var d Dense
	for i := 0; i < data.Size(); i++ {
		if !mask.Get(i) {
			continue
		}
		d.AppendBit(data.Get(i))
	}
	return d
}

// Ones returns the positions of the set bits in d, in ascending order.
func Ones(d Dense) []int {
	r := make([]int, 0, CountOnes(d))
	for i := 0; i < d.Size(); i++ {
		if d.Get(i) {
			r = append(r, i)
		}
	}
	return r
}

// FromBits packs a slice of 0/1 values. Any nonzero value is a set bit.
func FromBits(v []int) Dense {
	d := Dense{bits: make([]byte, 0, BytesFor(len(v)))}
	for _, b := range v {
		d.AppendBit(b != 0)
	}
	return d
}

// CountOnes returns the total number of bits set in d.
func CountOnes(d Dense) int {
	var sum int
	for _, b := range d.bits {
		sum += bits.OnesCount8(b)
	}
	return sum
}

// BytesFor returns the number of bytes necessary to hold the provided number of
// bits.
func BytesFor(bits int) int {
	return (bits + byteSize - 1) / byteSize
}
