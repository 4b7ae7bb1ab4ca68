package hierarchy

import "github.com/Joseda-hg/lazygantt/internal/model"

// Entry is one row of a flattened forest.
type Entry struct {
	Task        model.Task
	Depth       int
	HasChildren bool
	Expanded    bool
}

// Flatten walks the forest in pre-order with siblings in sort order, every
// subtree expanded. The result is deterministic for a given task set
// regardless of input order, but it is not a dependency topological order.
func Flatten(f *Forest) []Entry {
	return flatten(f, nil)
}

// FlattenVisible is Flatten restricted to expanded subtrees: children are
// emitted only when their parent id is in expanded. Roots are always
// emitted.
func FlattenVisible(f *Forest, expanded map[int64]bool) []Entry {
	if expanded == nil {
		expanded = map[int64]bool{}
	}
	return flatten(f, expanded)
}

func flatten(f *Forest, expanded map[int64]bool) []Entry {
	result := make([]Entry, 0, f.Len())
	seen := make(map[int64]bool, f.Len())

	var walk func(ids []int64, depth int)
	walk = func(ids []int64, depth int) {
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			task := f.tasks[id]
			open := expanded == nil || expanded[id]
			result = append(result, Entry{
				Task:        task,
				Depth:       depth,
				HasChildren: f.HasChildren(id),
				Expanded:    open,
			})
			if open {
				walk(f.children[id], depth+1)
			}
		}
	}

	walk(f.roots, 0)
	return result
}

// IDs returns the task ids of entries in order.
func IDs(entries []Entry) []int64 {
	ids := make([]int64, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.Task.ID)
	}
	return ids
}
