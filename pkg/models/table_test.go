package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable(t *testing.T) {
	var nilTable *Table
	assert.Equal(t, 0, nilTable.Len())
	assert.True(t, nilTable.IsEmpty())
	_, ok := nilTable.Lookup("a")
	assert.False(t, ok)

	table := NewTable(2)
	assert.True(t, table.IsEmpty())

	table.Append("b", "x")
	table.Append("a", "1")

	assert.Equal(t, 2, table.Len())
	assert.False(t, table.IsEmpty())
	assert.Equal(t, []string{"b", "a"}, table.Keys())

	v, ok := table.Lookup("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
}
