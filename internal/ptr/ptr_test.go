package ptr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClone(t *testing.T) {
	assert.Nil(t, Clone[int](nil))

	v := 42
	cloned := Clone(&v)
	assert.Equal(t, 42, *cloned)
	assert.NotSame(t, &v, cloned)
}

func TestCloneOr(t *testing.T) {
	tcs := []struct {
		name     string
		x        *string
		fallback *string
		want     *string
	}{
		{"both nil", nil, nil, nil},
		{"x wins", FromValue("x"), FromValue("fallback"), FromValue("x")},
		{"fallback used", nil, FromValue("fallback"), FromValue("fallback")},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			got := CloneOr(tc.x, tc.fallback)
			assert.Equal(t, tc.want, got)

			if got != nil {
				assert.NotSame(t, tc.x, got)
				assert.NotSame(t, tc.fallback, got)
			}
		})
	}
}

func TestFromPtrOr(t *testing.T) {
	assert.Equal(t, 7, FromPtrOr(nil, 7))
	assert.Equal(t, 3, FromPtrOr(FromValue(3), 7))
}
