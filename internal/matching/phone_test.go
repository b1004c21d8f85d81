package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "5125550100", NormalizePhone("+1 (512) 555-0100"))
	assert.Equal(t, "5125550100", NormalizePhone("5125550100"))
	assert.Equal(t, "5125550100", NormalizePhone("512.555.0100"))
	assert.Equal(t, NormalizePhone("5125550100"), NormalizePhone("+1 (512) 555-0100"))

	t.Run("only strips a leading 1 on eleven digits", func(t *testing.T) {
		assert.Equal(t, "25125550100", NormalizePhone("2-512-555-0100"))
		assert.Equal(t, "1555010", NormalizePhone("155-5010"))
	})

	t.Run("no digits", func(t *testing.T) {
		assert.Equal(t, "", NormalizePhone("call us"))
	})
}

func TestPhonesMatch(t *testing.T) {
	assert.True(t, PhonesMatch("(512) 555-0100", "1-512-555-0100"))
	assert.False(t, PhonesMatch("(512) 555-0100", "(512) 555-0101"))
	assert.False(t, PhonesMatch("", ""))
}
