package score

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recase/internal/corpus"
)

func testCorpus() *corpus.Corpus {
	return corpus.Build([]byte("the\nquick\nbrown\nfox\n"))
}

func TestScoreQuickBrownFox(t *testing.T) {
	c := testCorpus()

	// 16 letters, 3 spaces, 16 letters of dictionary words and 8 windows
	// each worth 10/8 with integer division.
	const want = 16*10 + 3*5 + 16*50 + 8*1
	got := Score([]byte("the quick brown fox"), c)
	assert.Equal(t, int64(want), got)

	rng := rand.New(rand.NewSource(7))
	noise := make([]byte, len("the quick brown fox"))
	for i := range noise {
		noise[i] = byte(rng.Intn(256))
	}
	assert.Less(t, Score(noise, c), got)
}

func TestScoreEmptyAndShortInputs(t *testing.T) {
	c := testCorpus()
	assert.Equal(t, int64(0), Score(nil, c))
	assert.Equal(t, int64(0), Score([]byte{}, c))
	assert.Equal(t, int64(20), Score([]byte("zq"), c))
	assert.Equal(t, int64(5), Score([]byte(" "), c))
}

func TestScoreClassTerms(t *testing.T) {
	c := corpus.Build(nil)
	cases := []struct {
		in   string
		want int64
	}{
		{in: "a", want: 10},
		{in: "7", want: 10},
		{in: "\t", want: 5},
		{in: "\f", want: 5},
		{in: "\v", want: -100},
		{in: "\x00", want: -100},
		{in: "\x7f", want: -100},
		{in: "!", want: 0},
		{in: "\xe9", want: 0},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, Score([]byte(tc.in), c), "class score of %q", tc.in)
	}
}

func TestScoreEmptyCorpusSkipsTrigramTerm(t *testing.T) {
	c := corpus.Build([]byte("\n\n"))
	assert.Equal(t, int64(30), Score([]byte("abc"), c))
}

func TestScoreIsPure(t *testing.T) {
	c := testCorpus()
	in := []byte("The Quick brown FOX\x01")
	orig := append([]byte(nil), in...)
	total := c.Total()

	first := Score(in, c)
	second := Score(in, c)

	assert.Equal(t, first, second)
	assert.Equal(t, orig, in, "input must not be modified")
	assert.Equal(t, total, c.Total())
	assert.Equal(t, 4, c.Len())
}

func TestScorerReuseMatchesScore(t *testing.T) {
	c := testCorpus()
	var s Scorer
	inputs := []string{"the quick brown fox", "", "fox", "THE\x00FOX", "a much longer sentence about a brown fox"}
	for _, in := range inputs {
		assert.Equal(t, Score([]byte(in), c), s.Score([]byte(in), c))
	}
	// A shorter input after a longer one must not see leftover bytes.
	assert.Equal(t, Score([]byte("fox"), c), s.Score([]byte("fox"), c))
}

func TestScoreCaseInvariantForPrintableText(t *testing.T) {
	c := testCorpus()
	rng := rand.New(rand.NewSource(3))
	inputs := []string{
		"the quick brown fox",
		"The Quick, brown fox! jumps?",
		"fox\tbrown\nquick\r\nthe",
	}
	for _, in := range inputs {
		want := Score([]byte(in), c)
		for trial := 0; trial < 20; trial++ {
			flipped := []byte(in)
			for i, b := range flipped {
				isLetter := (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
				if isLetter && rng.Intn(2) == 0 {
					flipped[i] = b ^ 0x20
				}
			}
			require.Equalf(t, want, Score(flipped, c), "flipped %q", flipped)
		}
	}
}

func TestScoreNotCaseInvariantWhenFlipChangesClass(t *testing.T) {
	c := testCorpus()
	// Toggling bit 0x20 turns control bytes into punctuation and back.
	in := []byte("fox\x01")
	flipped := []byte("fox!")
	assert.NotEqual(t, Score(in, c), Score(flipped, c))

	in = []byte("the\x1aquick")
	flipped = []byte("the:quick")
	assert.NotEqual(t, Score(in, c), Score(flipped, c))
}

func TestScoreRewardsWordSeparation(t *testing.T) {
	c := testCorpus()
	spaced := []byte("the quick brown fox")
	joined := bytes.ReplaceAll(spaced, []byte(" "), nil)
	assert.Greater(t, Score(spaced, c), Score(joined, c))

	spaced = []byte("fox the fox")
	joined = []byte("foxthefox")
	assert.Greater(t, Score(spaced, c), Score(joined, c))
}

func TestScorePenalizesControlBytes(t *testing.T) {
	c := testCorpus()
	withControl := []byte("the qu\x01ck brown fox")
	withLetter := []byte("the quick brown fox")
	assert.GreaterOrEqual(t, Score(withLetter, c)-Score(withControl, c), int64(100))

	withControl = []byte("zz\x01zz")
	withLetter = []byte("zzqzz")
	assert.GreaterOrEqual(t, Score(withLetter, c)-Score(withControl, c), int64(100))
}

func TestScoreWordMatchesAreCaseInsensitive(t *testing.T) {
	c := testCorpus()
	assert.Equal(t, Score([]byte("fox"), c), Score([]byte("FoX"), c))
	assert.Equal(t, int64(3*10+3*50+10/8), Score([]byte("fox"), c))
}
