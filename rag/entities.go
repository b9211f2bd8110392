package rag

import "regexp"

// Capitalized word or multi-word phrase, e.g. "Marie Curie" or "Paris".
var entityPattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)

// ExtractEntities pulls candidate proper-noun phrases from text for hop
// chaining. Duplicates are removed by exact string match keeping the
// first occurrence, so downstream hop queries are deterministic.
func ExtractEntities(text string) []string {
	matches := entityPattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	entities := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		entities = append(entities, m)
	}
	return entities
}
