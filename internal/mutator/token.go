package mutator

import (
	"errors"

	"github.com/tokendisco/tokendiscovery/internal/dictionary"
	"github.com/tokendisco/tokendiscovery/pkg/types"
)

// TokenAware is implemented by mutators that draw from a token
// dictionary. ProtectedIndex reports the dictionary index used by the
// most recent Mutate call, if any; PostExec unprotects that index and
// records whether the resulting execution was a success.
type TokenAware interface {
	Mutator
	ProtectedIndex() (int, bool)
	PostExec(success bool)
}

// TokenInsert picks a random dictionary token and splices it into a
// random offset of the input, shifting the tail right to make room.
type TokenInsert struct {
	Dict    *dictionary.Dictionary
	MaxSize int

	lastIdx int
	hasLast bool
}

func (m *TokenInsert) Name() string        { return "TokenInsert" }
func (m *TokenInsert) Description() string { return "splices a dictionary token into a random offset" }
func (m *TokenInsert) Type() types.MutationType { return types.TokenInsert }

func (m *TokenInsert) MutateWithType(input []byte, _ InputType) ([]byte, error) {
	return m.Mutate(input)
}

func (m *TokenInsert) Mutate(input []byte) ([]byte, error) {
	if m.Dict == nil || m.Dict.Len() == 0 {
		return input, nil
	}

	idx := secureRandomInt(m.Dict.Len())
	token, ok := m.Dict.At(idx)
	if !ok || len(token) == 0 {
		return input, nil
	}

	size := len(input)
	tokenLen := len(token)
	if size+tokenLen > m.MaxSize {
		if m.MaxSize > size {
			tokenLen = m.MaxSize - size
		} else {
			return input, nil
		}
	}
	if tokenLen == 0 {
		return input, nil
	}

	off := secureRandomInt(size + 1)

	out := make([]byte, size+tokenLen)
	copy(out, input[:off])
	copy(out[off:off+tokenLen], token[:tokenLen])
	copy(out[off+tokenLen:], input[off:])

	m.Dict.ProtectIndex(idx)
	m.lastIdx = idx
	m.hasLast = true

	return out, nil
}

func (m *TokenInsert) ProtectedIndex() (int, bool) {
	return m.lastIdx, m.hasLast
}

func (m *TokenInsert) PostExec(success bool) {
	if !m.hasLast {
		return
	}
	if m.Dict != nil {
		m.Dict.Unprotect()
		m.Dict.UpdateStats(m.lastIdx, success)
	}
	m.hasLast = false
}

// TokenReplace picks a random dictionary token and overwrites a random
// span of the input with it, clipping at the input's end.
type TokenReplace struct {
	Dict *dictionary.Dictionary

	lastIdx int
	hasLast bool
}

func (m *TokenReplace) Name() string        { return "TokenReplace" }
func (m *TokenReplace) Description() string { return "overwrites a random span with a dictionary token" }
func (m *TokenReplace) Type() types.MutationType { return types.TokenReplace }

func (m *TokenReplace) MutateWithType(input []byte, _ InputType) ([]byte, error) {
	return m.Mutate(input)
}

func (m *TokenReplace) Mutate(input []byte) ([]byte, error) {
	if len(input) == 0 {
		return input, errors.New("mutator: TokenReplace requires a nonempty input")
	}
	if m.Dict == nil || m.Dict.Len() == 0 {
		return input, nil
	}

	idx := secureRandomInt(m.Dict.Len())
	token, ok := m.Dict.At(idx)
	if !ok || len(token) == 0 {
		return input, nil
	}

	off := secureRandomInt(len(input))
	tokenLen := len(token)
	if off+tokenLen > len(input) {
		tokenLen = len(input) - off
	}
	if tokenLen == 0 {
		return input, nil
	}

	out := append([]byte(nil), input...)
	copy(out[off:off+tokenLen], token[:tokenLen])

	m.Dict.ProtectIndex(idx)
	m.lastIdx = idx
	m.hasLast = true

	return out, nil
}

func (m *TokenReplace) ProtectedIndex() (int, bool) {
	return m.lastIdx, m.hasLast
}

func (m *TokenReplace) PostExec(success bool) {
	if !m.hasLast {
		return
	}
	if m.Dict != nil {
		m.Dict.Unprotect()
		m.Dict.UpdateStats(m.lastIdx, success)
	}
	m.hasLast = false
}
