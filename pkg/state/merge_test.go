package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	teller "github.com/roboricindustries/tellerlink/pkg/schemas/teller/v1"
)

func TestMergeProducts_DedupesById(t *testing.T) {
	own := []teller.Product{{ID: "1", Name: "A"}}
	recommended := []teller.Product{{ID: "1", Name: "A"}, {ID: "2", Name: "B"}}

	got := MergeProducts(own, recommended)

	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "2", got[1].ID)
}

func TestMergeProducts_DisambiguatesByName(t *testing.T) {
	own := []teller.Product{{ID: "1", Name: "A"}}
	recommended := []teller.Product{{ID: "2", Name: "A"}}

	got := MergeProducts(own, recommended)

	require.Len(t, got, 2, "a name collision must never lose an entry")
	assert.Equal(t, "A", got[0].Name)
	assert.Equal(t, "A (1)", got[1].Name)
}

func TestMergeProducts_ThirdCollisionCountsUp(t *testing.T) {
	got := MergeProducts([]teller.Product{
		{ID: "1", Name: "A"},
		{ID: "2", Name: "A"},
		{ID: "3", Name: "A"},
	})

	require.Len(t, got, 3)
	assert.Equal(t, []string{"A", "A (1)", "A (2)"},
		[]string{got[0].Name, got[1].Name, got[2].Name})
}

func TestMergeProducts_Empty(t *testing.T) {
	assert.Empty(t, MergeProducts(nil, nil))
}
