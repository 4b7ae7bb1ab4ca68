package hierarchy

// RollupProgress recomputes the progress of every task that has children as
// the integer average of its direct children, deepest parents first. Only
// parents whose value changes are returned, keyed by id.
func RollupProgress(f *Forest) map[int64]int {
	progress := make(map[int64]int, len(f.tasks))
	for id, task := range f.tasks {
		progress[id] = task.ProgressRate
	}

	changed := make(map[int64]int)
	visiting := make(map[int64]bool)
	var compute func(id int64) int
	compute = func(id int64) int {
		children := f.children[id]
		if len(children) == 0 || visiting[id] {
			return progress[id]
		}
		visiting[id] = true
		total := 0
		for _, childID := range children {
			total += compute(childID)
		}
		visiting[id] = false

		average := total / len(children)
		if average != f.tasks[id].ProgressRate {
			changed[id] = average
		}
		progress[id] = average
		return average
	}

	for _, rootID := range f.roots {
		compute(rootID)
	}
	return changed
}
