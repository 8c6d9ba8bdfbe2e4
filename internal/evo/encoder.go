package evo

import "fmt"

// MaxBitsPerVar is the widest variable encoding the decoder accepts.
const MaxBitsPerVar = 64

// Chromosome is a bit string stored one bit per byte (0 or 1).
type Chromosome []byte

func (c Chromosome) Clone() Chromosome {
	return append(Chromosome(nil), c...)
}

func (c Chromosome) String() string {
	buf := make([]byte, len(c))
	for i, bit := range c {
		buf[i] = '0' + bit
	}
	return string(buf)
}

// Bounds is the closed interval a single variable is decoded into.
type Bounds struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Decode maps a chromosome to its phenotype. Each variable occupies
// bitsPerVar consecutive bits, most significant first, and is scaled
// linearly into its bounds.
func Decode(chromosome Chromosome, bounds []Bounds, bitsPerVar int) ([]float64, error) {
	if bitsPerVar <= 0 || bitsPerVar > MaxBitsPerVar {
		return nil, fmt.Errorf("bits per variable must be in [1, %d]: got %d", MaxBitsPerVar, bitsPerVar)
	}
	if len(chromosome) != len(bounds)*bitsPerVar {
		return nil, fmt.Errorf("chromosome length mismatch: got=%d want=%d", len(chromosome), len(bounds)*bitsPerVar)
	}

	// 2^bits - 1, computed without overflowing at 64 bits.
	maxInt := ^uint64(0) >> (MaxBitsPerVar - bitsPerVar)
	decoded := make([]float64, len(bounds))
	for i, b := range bounds {
		segment := chromosome[i*bitsPerVar : (i+1)*bitsPerVar]
		var value uint64
		for _, bit := range segment {
			value = value<<1 | uint64(bit&1)
		}
		switch value {
		case 0:
			decoded[i] = b.Min
		case maxInt:
			decoded[i] = b.Max
		default:
			decoded[i] = b.Min + (b.Max-b.Min)*float64(value)/float64(maxInt)
		}
	}
	return decoded, nil
}
