package label

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	assert.Equal(t, "Half ripened", Translate(HalfRipened))
	assert.Equal(t, "Fully ripened", Translate(FullyRipened))
	assert.Equal(t, "Green", Translate(Green))

	for _, raw := range []string{"", "rotten", "GREEN", "half_ripene", "Green"} {
		assert.Equal(t, raw, Translate(raw))
	}
}
