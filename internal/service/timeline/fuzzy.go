package service

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/GintGld/clip-editor/internal/models"
)

var (
	normalizeTransformer transform.Transformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	transformer                                = transform.Chain(normalizeTransformer, unicodeFoldTransformer{})
)

type wordRank struct {
	word models.Word
	rank int
}

// searchWords returns words fuzzy matching the query,
// closest first, ties in transcript order.
func searchWords(words []models.Word, query string) []models.Word {
	q := stringTransform(strings.TrimSpace(query))
	if q == "" {
		return slices.Clone(words)
	}

	ranked := make([]wordRank, 0, len(words))
	for _, w := range words {
		target := stringTransform(w.Word)
		if !fuzzy.Match(q, target) {
			continue
		}
		ranked = append(ranked, wordRank{
			word: w,
			rank: fuzzy.LevenshteinDistance(q, target),
		})
	}

	slices.SortStableFunc(ranked, func(a, b wordRank) int {
		return a.rank - b.rank
	})

	out := make([]models.Word, len(ranked))
	for i, r := range ranked {
		out[i] = r.word
	}
	return out
}

func stringTransform(s string) (transformed string) {
	var err error
	transformed, _, err = transform.String(transformer, s)
	if err != nil {
		transformed = s
	}

	return
}

type unicodeFoldTransformer struct{ transform.NopResetter }

func (unicodeFoldTransformer) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for i, r := range string(src) {
		size := utf8.RuneLen(r)
		if r == utf8.RuneError {
			// invalid byte is consumed alone
			_, size = utf8.DecodeRune(src[i:])
		}
		if !atEOF && !utf8.FullRune(src[i:]) {
			err = transform.ErrShortSrc
			break
		}

		r = unicode.ToLower(r)
		if utf8.RuneLen(r) > len(dst[nDst:]) {
			err = transform.ErrShortDst
			break
		}
		nDst += utf8.EncodeRune(dst[nDst:], r)
		nSrc += size
	}
	return nDst, nSrc, err
}
