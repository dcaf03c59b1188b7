package processor

import "github.com/tokendisco/tokendiscovery/internal/sais"

// Sais runs the suffix-array common-substring scan as a pipeline step:
// its input is treated as a byte corpus (one entry per list element)
// rather than a list of tokens to refine further.
type Sais struct {
	MinLen int
	MaxLen int
	Mode   sais.SelectionMode
}

func (s Sais) Name() string { return "sais" }

func (s Sais) Process(tokens [][]byte) ([][]byte, bool) {
	if len(tokens) == 0 {
		return nil, false
	}
	out := sais.Discover(tokens, sais.Config{MinLen: s.MinLen, MaxLen: s.MaxLen, Mode: s.Mode})
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}
