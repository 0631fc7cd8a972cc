package policy

import (
	"fmt"
	"regexp"
)

var subPattern = regexp.MustCompile(`<sub\s+idref\s*=\s*"([^"]*)"\s*/>`)

// Substitute replaces every <sub idref="..."/> in text with the bound
// literal of the referenced value.
func (p *Policy) Substitute(text string) (string, error) {
	var firstErr error
	out := subPattern.ReplaceAllStringFunc(text, func(match string) string {
		if firstErr != nil {
			return match
		}
		id := subPattern.FindStringSubmatch(match)[1]
		vb, err := p.ResolveValue(id)
		if err != nil {
			firstErr = fmt.Errorf("substitute: %w", err)
			return match
		}
		return vb.Value()
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}
