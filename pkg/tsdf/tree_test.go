package tsdf

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-obviously/slam2d/internal/vecmat"
)

func TestPartitionTreeQueryRadiusFindsInsertedPartitions(t *testing.T) {
	tree := NewPartitionTree()
	p00 := newPartition(0, 0, 4, 1.0)
	p10 := newPartition(1, 0, 4, 1.0)
	p55 := newPartition(5, 5, 4, 1.0)
	tree.Insert(p00)
	tree.Insert(p10)
	tree.Insert(p55)

	hits := tree.QueryRadius(vecmat.V(2, 2), 3)
	found := map[[2]int]bool{}
	for _, h := range hits {
		found[h] = true
	}
	assert.True(t, found[[2]int{0, 0}])
	assert.True(t, found[[2]int{1, 0}])
	assert.False(t, found[[2]int{5, 5}], "a far partition should not fall inside the query box")
}

func TestPartitionTreeDeleteRemovesPartition(t *testing.T) {
	tree := NewPartitionTree()
	p00 := newPartition(0, 0, 4, 1.0)
	tree.Insert(p00)
	tree.Delete(p00)

	hits := tree.QueryRadius(vecmat.V(2, 2), 10)
	assert.Empty(t, hits)
}
