package bb84

import (
	"unicode/utf8"

	"github.com/qkdsim/bb84/bb84/bitmap"
)

const charBits = 8

// A Reconstructed describes one byte recovered from the sifted key.
type Reconstructed struct {
	ByteIndex int    `json:"byte_index"`
	Bits      []int  `json:"bits"`
	Value     int    `json:"value"`
	Char      string `json:"char"`
}

// Encode converts text to bits, emitting each character's code point as 8
// bits, most significant first. Characters above U+00FF are rejected with an
// *EncodingError rather than truncated.
func Encode(text string) ([]int, error) {
	bits := make([]int, 0, charBits*utf8.RuneCountInString(text))
	i := 0
	for _, r := range text {
		if r > 0xFF {
			return nil, &EncodingError{Index: i, CodePoint: r}
		}
		for k := charBits - 1; k >= 0; k-- {
			bits = append(bits, int(r>>k)&1)
		}
		i++
	}
	return bits, nil
}

// Decode reassembles text from bits, 8 bits per character, discarding a
// trailing partial group. The second return lists every recovered byte. ok is
// false when bits holds less than one full character; that is distinct from
// decoding to the empty string.
func Decode(bits []int) (text string, table []Reconstructed, ok bool) {
	table = []Reconstructed{}
	if len(bits) < charBits {
		return "", table, false
	}
	d := bitmap.FromBits(bits)
	runes := make([]rune, 0, len(bits)/charBits)
	for k := 0; (k+1)*charBits <= d.Size(); k++ {
		group, err := bitmap.Slice(d, k*charBits, (k+1)*charBits)
		if err != nil {
			// Unreachable: the loop bound keeps every group in range.
			panic(err)
		}
		r := rune(bitmap.Uint(group))
		runes = append(runes, r)
		table = append(table, Reconstructed{
			ByteIndex: k,
			Bits:      group.Bits(),
			Value:     int(r),
			Char:      string(r),
		})
	}
	return string(runes), table, true
}
