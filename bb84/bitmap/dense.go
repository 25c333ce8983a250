package bitmap

import "strings"

// A Dense is a bitmap where every bit is explicitly represented. Bits past the
// end of a Dense are always zero.
type Dense struct {
	bits []byte
	len  int
}

// Get returns the i-th bit in this bitmap.
func (d Dense) Get(i int) bool {
	if i < 0 || i >= d.len {
		return false
	}
	j := i / byteSize
	if j >= len(d.bits) {
		return false
	}
	return 0 < d.bits[j]&(1<<(i%byteSize))
}

// Size returns the number of bits in this bitmap.
func (d Dense) Size() int {
	return d.len
}

// Bits unpacks d into a slice of 0/1 values. The result is never nil.
func (d Dense) Bits() []int {
	r := make([]int, d.len)
	for i := range r {
		if d.Get(i) {
			r[i] = 1
		}
	}
	return r
}

// String renders d as a string of '0's and '1's, first bit first.
func (d Dense) String() string {
	var sb strings.Builder
	sb.Grow(d.len)
	for i := 0; i < d.len; i++ {
		if d.Get(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// AppendBit adds a single bit to the end of d.
func (d *Dense) AppendBit(bit bool) {
	i, pos := d.len/byteSize, d.len%byteSize
	d.len += 1
	if pos == 0 {
		d.bits = append(d.bits, 0)
	}
	if bit {
		d.bits[i] |= 1 << pos
	} else {
		d.bits[i] &= ^(1 << pos)
	}
}

func (d *Dense) clearTail() {
	if off := d.len % byteSize; off != 0 {
		d.bits[len(d.bits)-1] &= 0xFF >> (byteSize - off)
	}
}
