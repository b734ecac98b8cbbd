package analysis

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"mediaintel/internal/domain/mention"
)

const minKeywordLength = 3

// stopwords covers English and Indonesian function words common in headlines
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		the and for with from that this are was were has have had not but you your
		its into over after before about than then they them their our out new more
		will can his her who what when where why how all any been being just also
		yang dan di ke dari untuk dengan pada ini itu atau tidak akan oleh sebagai
		dalam juga ada karena bagi para saat telah sudah lebih kami kita mereka
		bisa harus masih hingga antara tersebut
	`) {
		stopwords[w] = struct{}{}
	}
}

// Keywords counts headline tokens across mentions, most frequent first
func Keywords(mentions []mention.Mention) []Bucket {
	counts := make(map[string]float64)
	for _, m := range mentions {
		for _, token := range tokenize(m.Headline) {
			counts[token]++
		}
	}

	buckets := make([]Bucket, 0, len(counts))
	for token, n := range counts {
		buckets = append(buckets, Bucket{Label: token, Value: n})
	}
	sortBuckets(buckets)
	return withShares(buckets)
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) < minKeywordLength || isNumber(f) {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
