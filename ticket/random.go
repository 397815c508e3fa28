package ticket

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// RandomSource yields uniform integers in [0, n)
// *rand.Rand from math/rand/v2 satisfies it
type RandomSource interface {
	IntN(n int) int
}

// NewRandom returns a PCG source; seed zero draws a seed from crypto/rand
func NewRandom(seed uint64) *rand.Rand {
	if seed == 0 {
		var buf [16]byte
		if _, err := cryptoRand.Read(buf[:]); err == nil {
			return rand.New(rand.NewPCG(binary.LittleEndian.Uint64(buf[:8]), binary.LittleEndian.Uint64(buf[8:])))
		}
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
