package services

import (
	"cmp"
	"slices"

	"studyarchive/internal/models"
)

// CommentNode is a comment together with its direct replies.
type CommentNode struct {
	models.Comment
	Replies []CommentNode `json:"replies"`
}

// BuildCommentTree turns an unordered flat list of comments of one document into a
// forest of threads. Every level is ordered newest first (ties: higher id first, then
// input order). A comment whose parent is not in the list is promoted to the root
// level, and so is any comment caught in a parent cycle, so every input record appears
// exactly once in the output.
func BuildCommentTree(records []models.Comment) []CommentNode {
	n := len(records)
	if n == 0 {
		return []CommentNode{}
	}

	// id -> arena index, 重复 id 以第一次出现为准
	byID := make(map[uint]int, n)
	for i := range records {
		if _, ok := byID[records[i].ID]; !ok {
			byID[records[i].ID] = i
		}
	}

	children := make([][]int, n)
	roots := make([]int, 0, n)
	for i := range records {
		if p := records[i].ParentID; p != nil {
			if pi, ok := byID[*p]; ok && pi != i {
				children[pi] = append(children[pi], i)
				continue
			}
		}
		roots = append(roots, i)
	}

	b := treeBuilder{records: records, children: children, visited: make([]bool, n)}
	for _, level := range children {
		b.sort(level)
	}
	b.sort(roots)

	forest := make([]CommentNode, 0, len(roots))
	for _, i := range roots {
		forest = append(forest, b.node(i))
	}

	// 环上的评论从任何根都走不到，提升为根
	stranded := false
	for i := range records {
		if !b.visited[i] {
			forest = append(forest, b.node(i))
			stranded = true
		}
	}
	if stranded {
		slices.SortStableFunc(forest, func(a, c CommentNode) int {
			return compareNewestFirst(&a.Comment, &c.Comment)
		})
	}

	return forest
}

type treeBuilder struct {
	records  []models.Comment
	children [][]int
	visited  []bool
}

func (b *treeBuilder) sort(level []int) {
	slices.SortStableFunc(level, func(x, y int) int {
		return compareNewestFirst(&b.records[x], &b.records[y])
	})
}

func (b *treeBuilder) node(i int) CommentNode {
	b.visited[i] = true
	kids := b.children[i]
	replies := make([]CommentNode, 0, len(kids))
	for _, k := range kids {
		if b.visited[k] {
			continue
		}
		replies = append(replies, b.node(k))
	}
	return CommentNode{Comment: b.records[i], Replies: replies}
}

func compareNewestFirst(a, b *models.Comment) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

// CountNodes returns the number of comments in a forest, replies included.
func CountNodes(forest []CommentNode) int {
	total := 0
	for i := range forest {
		total += 1 + CountNodes(forest[i].Replies)
	}
	return total
}

// WalkTree calls fn for every node, parents before their replies.
func WalkTree(forest []CommentNode, fn func(node *CommentNode, depth int)) {
	walk(forest, 0, fn)
}

func walk(forest []CommentNode, depth int, fn func(node *CommentNode, depth int)) {
	for i := range forest {
		fn(&forest[i], depth)
		walk(forest[i].Replies, depth+1, fn)
	}
}
