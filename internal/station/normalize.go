package station

import (
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const defaultNormalizerSize = 2048

// Letters that carry no combining mark and so survive NFD unchanged
var latinFolds = map[rune]string{
	'ß': "ss", 'ẞ': "SS",
	'æ': "ae", 'Æ': "AE",
	'œ': "oe", 'Œ': "OE",
	'ø': "o", 'Ø': "O",
	'ł': "l", 'Ł': "L",
	'đ': "d", 'Đ': "D",
	'ı': "i",
}

// Normalizer folds station names and queries to lowercase ASCII letters and
// digits. Results are memoized; the function is pure, so the memo is safe to
// share between requests.
type Normalizer struct {
	memo *lru.Cache[string, string]
}

func NewNormalizer(size int) *Normalizer {
	if size <= 0 {
		size = defaultNormalizerSize
	}
	memo, err := lru.New[string, string](size)
	if err != nil {
		// only reachable with a non-positive size
		panic(err)
	}
	return &Normalizer{memo: memo}
}

// Normalize strips diacritics, transliterates a few standalone Latin letters
// and drops everything that is not an ASCII letter or digit.
func (n *Normalizer) Normalize(s string) string {
	if n == nil || n.memo == nil {
		return normalize(s)
	}
	if v, ok := n.memo.Get(s); ok {
		return v
	}
	v := normalize(s)
	n.memo.Add(s, v)
	return v
}

func normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}

	var sb strings.Builder
	sb.Grow(len(stripped))
	for _, r := range stripped {
		if fold, ok := latinFolds[r]; ok {
			sb.WriteString(strings.ToLower(fold))
			continue
		}
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			sb.WriteRune(r + ('a' - 'A'))
		}
	}
	return sb.String()
}
