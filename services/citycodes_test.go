package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToIATACityCode_Passthrough(t *testing.T) {
	r := NewLocationResolver()

	code, ok := r.ToIATACityCode("bjs")
	assert.True(t, ok)
	assert.Equal(t, "BJS", code)

	code, ok = r.ToIATACityCode("SHA")
	assert.True(t, ok)
	assert.Equal(t, "SHA", code)
}

func TestToIATACityCode_AliasIdempotence(t *testing.T) {
	r := NewLocationResolver()

	withSuffix, ok1 := r.ToIATACityCode("北京市")
	plain, ok2 := r.ToIATACityCode("北京")

	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.Equal(t, plain, withSuffix)
	assert.Equal(t, "BJS", plain)
}

func TestToIATACityCode_Lookup(t *testing.T) {
	r := NewLocationResolver()

	tests := []struct {
		name string
		want string
	}{
		{"上海", "SHA"},
		{"广州", "CAN"},
		{"成都", "CTU"},
		{"  深圳  ", "SZX"},
	}
	for _, tt := range tests {
		code, ok := r.ToIATACityCode(tt.name)
		assert.True(t, ok, tt.name)
		assert.Equal(t, tt.want, code)
	}
}

func TestToIATACityCode_NotFound(t *testing.T) {
	r := NewLocationResolver()

	_, ok := r.ToIATACityCode("不存在的城市")
	assert.False(t, ok)

	_, ok = r.ToIATACityCode("")
	assert.False(t, ok)

	// Three characters but not alphabetic: not a code, not in the table.
	_, ok = r.ToIATACityCode("B2S")
	assert.False(t, ok)
}
