package store

import (
	"sort"
	"strconv"
	"strings"
)

// The hierarchy is indexed with materialized paths: each level appends a
// fixed-width base36 step, so "0001" is the first root and "00010002" its
// second child.
const pathStepLen = 4

// pathStep encodes the n-th (1-based) sibling position.
func pathStep(n int) string {
	s := strings.ToUpper(strconv.FormatInt(int64(n), 36))
	if len(s) < pathStepLen {
		s = strings.Repeat("0", pathStepLen-len(s)) + s
	}
	return s
}

// lastStep returns the sibling position encoded at the end of path, or 0.
func lastStep(path string) int {
	if len(path) < pathStepLen {
		return 0
	}
	n, err := strconv.ParseInt(path[len(path)-pathStepLen:], 36, 64)
	if err != nil {
		return 0
	}
	return int(n)
}

func pathDepth(path string) int { return len(path) / pathStepLen }

func parentPath(path string) string {
	if len(path) <= pathStepLen {
		return ""
	}
	return path[:len(path)-pathStepLen]
}

// rebase moves path from below oldPrefix to below newPrefix.
func rebase(path, oldPrefix, newPrefix string) string {
	return newPrefix + strings.TrimPrefix(path, oldPrefix)
}

type treeNode struct {
	ID       int64
	ParentID *int64
	Path     string
}

type placement struct {
	Path     string
	Depth    int
	NumChild int
}

// rebuildIndex recomputes the materialized path index from parent links.
// Parentless nodes that were never placed (empty path) stay outside the
// tree. Siblings keep their previous relative order.
func rebuildIndex(nodes []treeNode) map[int64]placement {
	known := make(map[int64]bool, len(nodes))
	for _, n := range nodes {
		known[n.ID] = true
	}

	children := make(map[int64][]treeNode)
	var roots []treeNode
	for _, n := range nodes {
		switch {
		case n.ParentID != nil && known[*n.ParentID]:
			children[*n.ParentID] = append(children[*n.ParentID], n)
		case n.Path != "" || n.ParentID != nil:
			roots = append(roots, n)
		}
	}

	out := make(map[int64]placement, len(nodes))
	var place func(level []treeNode, prefix string)
	place = func(level []treeNode, prefix string) {
		sortSiblings(level)
		for i, n := range level {
			path := prefix + pathStep(i+1)
			out[n.ID] = placement{
				Path:     path,
				Depth:    pathDepth(path),
				NumChild: len(children[n.ID]),
			}
			place(children[n.ID], path)
		}
	}
	place(roots, "")
	return out
}

func sortSiblings(level []treeNode) {
	sort.SliceStable(level, func(i, j int) bool {
		a, b := level[i], level[j]
		if (a.Path == "") != (b.Path == "") {
			return a.Path != ""
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.ID < b.ID
	})
}
