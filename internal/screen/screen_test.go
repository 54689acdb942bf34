package screen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNavigationWraps(t *testing.T) {
	assert.Equal(t, Historical, Current.Next())
	assert.Equal(t, Yearly, Historical.Next())
	assert.Equal(t, Current, Yearly.Next())

	assert.Equal(t, Yearly, Current.Prev())
	assert.Equal(t, Current, Historical.Prev())
}

func TestParse(t *testing.T) {
	id, err := Parse("des2")
	require.NoError(t, err)
	assert.Equal(t, Historical, id)

	id, err = Parse("yearly")
	require.NoError(t, err)
	assert.Equal(t, Yearly, id)

	_, err = Parse("DES4")
	assert.Error(t, err)
}

func TestChatTable(t *testing.T) {
	assert.Equal(t, "tblChat_DES1", Current.ChatTable())
	assert.Equal(t, "Yearly Comparison", Yearly.Title())
}
