package promptcatalog

import "unicode/utf8"

// TokenCounter estimates how many model tokens a rendered prompt occupies.
// Hosts with an exact tokenizer can supply their own implementation.
type TokenCounter interface {
	Count(text string) (int, error)
}

// RuneCounter approximates tokens as ceil(runes / RunesPerToken).
// The zero value assumes 4 runes per token.
type RuneCounter struct {
	RunesPerToken int
}

var _ TokenCounter = RuneCounter{}

// Count implements TokenCounter.
func (c RuneCounter) Count(text string) (int, error) {
	per := c.RunesPerToken
	if per <= 0 {
		per = 4
	}
	return (utf8.RuneCountInString(text) + per - 1) / per, nil
}
