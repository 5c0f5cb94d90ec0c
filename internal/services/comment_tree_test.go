package services

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyarchive/internal/models"
)

var t0 = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func uptr(v uint) *uint { return &v }

func rec(id uint, parent *uint, minutes int) models.Comment {
	return models.Comment{ID: id, ParentID: parent, CreatedAt: t0.Add(time.Duration(minutes) * time.Minute)}
}

func ids(forest []CommentNode) []uint {
	out := make([]uint, 0, len(forest))
	for _, n := range forest {
		out = append(out, n.ID)
	}
	return out
}

func TestBuildCommentTreeEmpty(t *testing.T) {
	forest := BuildCommentTree(nil)
	require.NotNil(t, forest)
	assert.Empty(t, forest)
	assert.Empty(t, BuildCommentTree([]models.Comment{}))
}

func TestBuildCommentTreeScenario(t *testing.T) {
	records := []models.Comment{
		rec(1, nil, 0),
		rec(2, uptr(1), 5),
		rec(3, nil, 10),
	}

	forest := BuildCommentTree(records)

	require.Equal(t, []uint{3, 1}, ids(forest))
	assert.NotNil(t, forest[0].Replies)
	assert.Empty(t, forest[0].Replies)
	require.Equal(t, []uint{2}, ids(forest[1].Replies))
	assert.Empty(t, forest[1].Replies[0].Replies)
}

func TestBuildCommentTreeDeepNestingAndOrder(t *testing.T) {
	records := []models.Comment{
		rec(4, uptr(2), 30),
		rec(1, nil, 0),
		rec(5, uptr(2), 40),
		rec(2, uptr(1), 10),
		rec(3, uptr(1), 20),
		rec(6, uptr(5), 50),
	}

	forest := BuildCommentTree(records)

	require.Equal(t, []uint{1}, ids(forest))
	require.Equal(t, []uint{3, 2}, ids(forest[0].Replies))
	two := forest[0].Replies[1]
	require.Equal(t, []uint{5, 4}, ids(two.Replies))
	require.Equal(t, []uint{6}, ids(two.Replies[0].Replies))
}

func TestBuildCommentTreeOrphanPromoted(t *testing.T) {
	records := []models.Comment{
		rec(1, nil, 0),
		rec(2, uptr(99), 10),
	}

	forest := BuildCommentTree(records)
	assert.Equal(t, []uint{2, 1}, ids(forest))
}

func TestBuildCommentTreeTieBreakByID(t *testing.T) {
	records := []models.Comment{
		rec(1, nil, 0),
		rec(3, nil, 0),
		rec(2, nil, 0),
	}
	assert.Equal(t, []uint{3, 2, 1}, ids(BuildCommentTree(records)))
}

func TestBuildCommentTreeCyclesKeepEveryRecord(t *testing.T) {
	records := []models.Comment{
		rec(1, uptr(2), 0),
		rec(2, uptr(1), 10),
		rec(3, uptr(3), 20),
		rec(4, nil, 5),
	}

	forest := BuildCommentTree(records)
	assert.Equal(t, len(records), CountNodes(forest))
	// 1 and 2 point at each other: the first of them in input order is promoted
	assert.Equal(t, []uint{3, 4, 1}, ids(forest))
	require.Equal(t, []uint{2}, ids(forest[2].Replies))
}

func TestBuildCommentTreeIdempotent(t *testing.T) {
	records := []models.Comment{
		rec(1, nil, 0),
		rec(2, uptr(1), 5),
		rec(3, uptr(2), 6),
		rec(4, nil, 1),
	}

	first := BuildCommentTree(records)
	second := BuildCommentTree(records)
	assert.Equal(t, first, second)
}

// 随机森林：每条评论恰好出现一次，且挂在其父节点之下
func TestBuildCommentTreeRandomProperties(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		n := rnd.Intn(60)
		records := make([]models.Comment, 0, n)
		for i := 1; i <= n; i++ {
			var parent *uint
			switch r := rnd.Intn(4); {
			case r == 0 || i == 1:
			case r == 1:
				parent = uptr(uint(n + 100)) // orphan
			default:
				parent = uptr(uint(rnd.Intn(i-1) + 1))
			}
			records = append(records, rec(uint(i), parent, rnd.Intn(30)))
		}
		rnd.Shuffle(len(records), func(i, j int) { records[i], records[j] = records[j], records[i] })

		forest := BuildCommentTree(records)

		seen := map[uint]int{}
		parentOf := map[uint]*uint{}
		for _, r := range records {
			parentOf[r.ID] = r.ParentID
		}

		var check func(level []CommentNode, parent *uint)
		check = func(level []CommentNode, parent *uint) {
			for i := range level {
				node := level[i]
				seen[node.ID]++
				if parent == nil {
					// root: no parent, or parent not in the input
					if p := parentOf[node.ID]; p != nil {
						_, exists := parentOf[*p]
						assert.False(t, exists, "comment %d has resolvable parent but sits at root", node.ID)
					}
				} else {
					require.NotNil(t, parentOf[node.ID])
					assert.Equal(t, *parent, *parentOf[node.ID])
				}
				if i > 0 {
					prev := level[i-1]
					assert.False(t, prev.CreatedAt.Before(node.CreatedAt), "level not newest first")
				}
				check(node.Replies, &node.ID)
			}
		}
		check(forest, nil)

		assert.Equal(t, n, CountNodes(forest))
		for _, r := range records {
			assert.Equal(t, 1, seen[r.ID], "comment %d", r.ID)
		}
	}
}

func TestWalkTreeDepth(t *testing.T) {
	forest := BuildCommentTree([]models.Comment{
		rec(1, nil, 0),
		rec(2, uptr(1), 1),
		rec(3, uptr(2), 2),
	})

	depths := map[uint]int{}
	WalkTree(forest, func(n *CommentNode, depth int) {
		depths[n.ID] = depth
	})
	assert.Equal(t, map[uint]int{1: 0, 2: 1, 3: 2}, depths)
}
