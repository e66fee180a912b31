package fontatlas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRunesCoversPrintableASCIIAndSpace(t *testing.T) {
	runes := DefaultRunes()
	assert.Contains(t, runes, '!')
	assert.Contains(t, runes, '~')
	assert.Contains(t, runes, 'A')
	assert.Contains(t, runes, ' ')
	assert.NotContains(t, runes, rune(0))
	// '!' (33) through '~' (126) plus the trailing space.
	assert.Len(t, runes, '~'-'!'+1+1)
}

func TestBuildRejectsInvalidFontData(t *testing.T) {
	_, err := Build([]byte("not a font"), Options{})
	assert.Error(t, err)
}
