package registry

// bitset is a growable set of small unsigned integers, used to store the
// ancestor set of a TypeId so that IsSubtype is a single word test rather
// than a graph walk. Mirrors the ancestor-set strategy called for in
// spec.md §9 ("type -> ancestor_set... arena + indices is a fine strategy").
type bitset struct {
	words []uint64
}

func newBitset() *bitset {
	return &bitset{}
}

func (b *bitset) ensure(word int) {
	for len(b.words) <= word {
		b.words = append(b.words, 0)
	}
}

func (b *bitset) set(i uint32) {
	word, bit := int(i/64), i%64
	b.ensure(word)
	b.words[word] |= 1 << bit
}

func (b *bitset) test(i uint32) bool {
	word, bit := int(i/64), i%64
	if word >= len(b.words) {
		return false
	}
	return b.words[word]&(1<<bit) != 0
}

// or returns a fresh bitset that is the union of b and other.
func (b *bitset) or(other *bitset) *bitset {
	n := len(b.words)
	if len(other.words) > n {
		n = len(other.words)
	}
	result := &bitset{words: make([]uint64, n)}
	for i := 0; i < n; i++ {
		var a, c uint64
		if i < len(b.words) {
			a = b.words[i]
		}
		if i < len(other.words) {
			c = other.words[i]
		}
		result.words[i] = a | c
	}
	return result
}

// popcount returns the number of set bits, used as a cheap proxy for "how
// deep in the lattice is this type" when deriving specificity scores.
func (b *bitset) popcount() int {
	count := 0
	for _, w := range b.words {
		for w != 0 {
			w &= w - 1
			count++
		}
	}
	return count
}
