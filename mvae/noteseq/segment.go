package noteseq

import (
	"github.com/kiteco/musicvae/kite-golib/errors"
)

// Step holds one categorical token per component of x_depth. By convention component
// 0 is the pitch token, component 1 the duration and component 2 the onset advance.
type Step []int

// Segment is one symbolic-music phrase
type Segment []Step

// Validate checks that every step has one token per component and that every token is
// within its component's depth
func (s Segment) Validate(xDepth []int) error {
	if len(s) == 0 {
		return errors.Errorf("empty segment")
	}
	for i, step := range s {
		if len(step) != len(xDepth) {
			return errors.Errorf("step %d has %d tokens, expected %d", i, len(step), len(xDepth))
		}
		for c, tok := range step {
			if tok < 0 || tok >= xDepth[c] {
				return errors.Errorf("step %d component %d: token %d out of range [0, %d)", i, c, tok, xDepth[c])
			}
		}
	}
	return nil
}
