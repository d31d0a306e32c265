package shared

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

var (
	// punctuation and separators dropped before comparing names, full-width forms included
	stripPattern = regexp.MustCompile(`[\s'"、，。！？!（）()【】\[\]《》“”‘’·._/\-]+`)

	// separators between collaborating artists; the words only split on word boundaries so names like "Alex" survive
	artistSplitPattern = regexp.MustCompile(`(?i)[,，/&、×+·]|\bfeat\b\.?|\bft\b\.?|\bwith\b|\bx\b|合作|合唱`)
)

// NormalizeText lower-cases s, folds full-width forms, unescapes "&amp;" and removes whitespace and punctuation.
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(width.Fold.String(s))
	s = strings.ReplaceAll(s, "&amp;", "&")
	return stripPattern.ReplaceAllString(s, "")
}

// ArtistTokens splits each artist string on collaboration separators and returns the non-empty normalized parts.
func ArtistTokens(artists ...string) []string {
	var tokens []string
	for _, a := range artists {
		for _, part := range artistSplitPattern.Split(a, -1) {
			if tok := NormalizeText(part); tok != "" {
				tokens = append(tokens, tok)
			}
		}
	}
	return tokens
}

// SanitizeURL unescapes HTML "&amp;" entities left in catalog URLs.
func SanitizeURL(u string) string {
	return strings.ReplaceAll(u, "&amp;", "&")
}
