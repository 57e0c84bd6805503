package corpus

import "bytes"

// Corpus is the reference word set and trigram statistics derived from a
// newline-delimited word list. It is read-only after Build and safe to share.
type Corpus struct {
	words    map[string]struct{}
	freqs    map[Trigram]int
	total    int
	rawBytes int
}

// Build lower-cases raw in place, splits it on '\n' and indexes every
// non-empty segment. raw must not be modified afterwards.
func Build(raw []byte) *Corpus {
	LowerASCII(raw)

	c := &Corpus{
		words:    make(map[string]struct{}),
		freqs:    make(map[Trigram]int),
		rawBytes: len(raw),
	}
	for word := range bytes.SplitSeq(raw, []byte{'\n'}) {
		if len(word) == 0 {
			continue
		}
		c.words[string(word)] = struct{}{}
		for t := range Trigrams(word) {
			c.freqs[t]++
			c.total++
		}
	}
	return c
}

func (c *Corpus) Contains(word []byte) bool {
	_, ok := c.words[string(word)]
	return ok
}

func (c *Corpus) Frequency(t Trigram) int {
	return c.freqs[t]
}

// Total is the number of trigram occurrences across all indexed words.
func (c *Corpus) Total() int {
	return c.total
}

// Len is the number of distinct words.
func (c *Corpus) Len() int {
	return len(c.words)
}

func (c *Corpus) DistinctTrigrams() int {
	return len(c.freqs)
}

// SourceBytes is the size of the word list the corpus was built from.
func (c *Corpus) SourceBytes() int {
	return c.rawBytes
}

// LowerASCII lower-cases ASCII letters in place and leaves every other byte
// untouched.
func LowerASCII(b []byte) {
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c | 0x20
		}
	}
}
