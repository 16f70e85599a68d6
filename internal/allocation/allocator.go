// Package allocation implements the capacity-constrained, preference-based
// section assignment used when a CBCS cycle is finalized. The algorithm is
// deterministic: given the same preferences and the same section order it
// always produces the same assignment, which lets administrators re-run
// finalization after a data correction and get identical results.
package allocation

// Section describes one seat pool of a course.
type Section struct {
	SectionID string
	StaffID   string
	Capacity  int
}

// Preference is a single student's requested section, in rank order.
type Preference struct {
	StudentID string
	SectionID string
	StaffID   string
	Rank      int
}

// Assignment pins one student to one section.
type Assignment struct {
	StudentID string
	SectionID string
}

// Outcome is the result of allocating one course.
type Outcome struct {
	Assignments []Assignment
	// Unassigned lists students for whom no section had remaining capacity.
	Unassigned []string
	// Overflowed lists sections left above capacity after rebalancing.
	Overflowed []string
}

type sectionState struct {
	sectionID string
	max       int
	current   int
	students  []string
}

// Allocate assigns every student in prefs to a section, two passes:
//
// Pass 1 walks preferences in the supplied order (rank ascending). A student
// gets their requested section while it has room; otherwise they fall back
// to the section with the most remaining capacity, ties broken by section
// order. With no capacity anywhere the student stays unassigned.
//
// Pass 2 rebalances sections that ended up above capacity (possible when
// capacities were edited after preferences referenced them): the most
// recently added students are moved, one at a time, to whichever other
// section has the most room. When nothing has room the student is put back
// and the overflow is accepted rather than dropping anyone.
func Allocate(prefs []Preference, sections []Section) Outcome {
	states := make([]*sectionState, 0, len(sections))
	byID := make(map[string]*sectionState, len(sections))
	for _, s := range sections {
		state := &sectionState{sectionID: s.SectionID, max: s.Capacity}
		states = append(states, state)
		byID[s.SectionID] = state
	}

	var unassigned []string

	for _, pref := range prefs {
		if target, ok := byID[pref.SectionID]; ok && target.current < target.max {
			target.current++
			target.students = append(target.students, pref.StudentID)
			continue
		}

		best, bestSpace := mostRoom(states, nil)
		if best != nil && bestSpace > 0 {
			best.current++
			best.students = append(best.students, pref.StudentID)
			continue
		}
		unassigned = append(unassigned, pref.StudentID)
	}

	var overflowed []string
	for _, state := range states {
		for state.current > state.max && len(state.students) > 0 {
			student := state.students[len(state.students)-1]
			state.students = state.students[:len(state.students)-1]
			state.current--

			target, space := mostRoom(states, state)
			if target != nil && space > 0 {
				target.current++
				target.students = append(target.students, student)
				continue
			}

			// nowhere to move: undo the pop and accept the overflow
			state.students = append(state.students, student)
			state.current++
			break
		}
		if state.current > state.max {
			overflowed = append(overflowed, state.sectionID)
		}
	}

	var assignments []Assignment
	for _, state := range states {
		for _, student := range state.students {
			assignments = append(assignments, Assignment{StudentID: student, SectionID: state.sectionID})
		}
	}

	return Outcome{Assignments: assignments, Unassigned: unassigned, Overflowed: overflowed}
}

// mostRoom returns the section with the largest remaining capacity, skipping
// exclude. First-encountered order wins ties.
func mostRoom(states []*sectionState, exclude *sectionState) (*sectionState, int) {
	var best *sectionState
	bestSpace := -1
	for _, state := range states {
		if state == exclude {
			continue
		}
		space := state.max - state.current
		if space > bestSpace {
			bestSpace = space
			best = state
		}
	}
	return best, bestSpace
}
