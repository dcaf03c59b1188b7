package processor

// StripBytes trims leading and trailing bytes found in Set from every
// token, dropping any result shorter than MinLen.
type StripBytes struct {
	Set    map[byte]struct{}
	MinLen int
}

func NewStripBytes(set []byte, minLen int) StripBytes {
	m := make(map[byte]struct{}, len(set))
	for _, b := range set {
		m[b] = struct{}{}
	}
	return StripBytes{Set: m, MinLen: minLen}
}

func (s StripBytes) Name() string { return "strip_bytes" }

func (s StripBytes) Process(tokens [][]byte) ([][]byte, bool) {
	var out [][]byte
	for _, tok := range tokens {
		start := 0
		end := len(tok)
		for start < end {
			if _, strip := s.Set[tok[start]]; !strip {
				break
			}
			start++
		}
		for end > start {
			if _, strip := s.Set[tok[end-1]]; !strip {
				break
			}
			end--
		}
		trimmed := tok[start:end]
		if len(trimmed) < s.MinLen {
			continue
		}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}
