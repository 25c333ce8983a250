package bb84

import (
	"fmt"

	"github.com/qkdsim/bb84/bb84/bitmap"
	"github.com/qkdsim/bb84/bb84/photon"
)

// A SiftedKeyPair holds the bits Alice and Bob keep after basis
// reconciliation, and the positions they were kept from.
type SiftedKeyPair struct {
	Alice   []int
	Bob     []int
	Indices []int
}

// Sift keeps exactly the positions where Alice and Bob chose the same basis,
// in their original order.
func Sift(aliceBits []int, aliceBases, bobBases []photon.Basis, results []int) (SiftedKeyPair, error) {
	n := len(aliceBits)
	if len(aliceBases) != n || len(bobBases) != n || len(results) != n {
		return SiftedKeyPair{}, fmt.Errorf("sifting mismatched sequences: %d bits, %d/%d bases, %d results",
			n, len(aliceBases), len(bobBases), len(results))
	}
	mask := bitmap.XNor(basesToBitmap(aliceBases), basesToBitmap(bobBases))
	return SiftedKeyPair{
		Alice:   bitmap.Select(bitmap.FromBits(aliceBits), mask).Bits(),
		Bob:     bitmap.Select(bitmap.FromBits(results), mask).Bits(),
		Indices: bitmap.Ones(mask),
	}, nil
}

func basesToBitmap(bases []photon.Basis) bitmap.Dense {
	var d bitmap.Dense
	for _, b := range bases {
		d.AppendBit(b == photon.Diagonal)
	}
	return d
}
