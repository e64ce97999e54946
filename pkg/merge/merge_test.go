package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValue(t *testing.T) {
	tests := []struct {
		name     string
		base     *string
		incoming *string
		expected *string
	}{
		{"both unset", nil, nil, nil},
		{"only base", Ptr("a"), nil, Ptr("a")},
		{"only incoming", nil, Ptr("b"), Ptr("b")},
		{"incoming wins", Ptr("a"), Ptr("b"), Ptr("b")},
		{"explicit empty wins", Ptr("a"), Ptr(""), Ptr("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Value(tt.base, tt.incoming))
		})
	}
}

func TestSlice(t *testing.T) {
	assert.Nil(t, Slice[int](nil, nil))
	assert.Equal(t, []int{1}, Slice([]int{1}, nil))
	assert.Equal(t, []int{2, 3}, Slice([]int{1}, []int{2, 3}))
	assert.Equal(t, []int{}, Slice([]int{1}, []int{}), "an explicitly empty list clears the base")
}

func TestMap(t *testing.T) {
	base := map[string]string{"a": "default-a", "b": "default-b"}
	incoming := map[string]string{"b": "override-b", "c": "override-c"}

	merged := Map(base, incoming)

	assert.Equal(t, map[string]string{
		"a": "default-a",
		"b": "override-b",
		"c": "override-c",
	}, merged)
	assert.Equal(t, "default-b", base["b"], "base must not be modified")
	assert.Len(t, incoming, 2, "incoming must not be modified")
	assert.Nil(t, Map[string](nil, nil))
	assert.Equal(t, map[string]string{"x": "1"}, Map(nil, map[string]string{"x": "1"}))
}

func TestFold(t *testing.T) {
	concat := func(base, incoming string) string { return base + incoming }
	assert.Equal(t, "abc", Fold(concat, "a", "b", "c"))
	assert.Equal(t, "", Fold(concat))
}

func TestDeref(t *testing.T) {
	assert.Equal(t, 3, Deref(Ptr(3), 1))
	assert.Equal(t, 1, Deref[int](nil, 1))
}
