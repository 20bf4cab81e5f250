package service

import "strings"

const (
	maxNameLen        = 100
	maxDescriptionLen = 300
)

// diffIDs compares the current association set with the wanted one and
// returns the ids to add and the ids to remove.  Duplicates in want are
// ignored.  Both results keep the order of their source slice.
func diffIDs(current, want []uint64) (add, remove []uint64) {
	have := make(map[uint64]bool, len(current))
	for _, id := range current {
		have[id] = true
	}
	wanted := make(map[uint64]bool, len(want))
	for _, id := range want {
		if wanted[id] {
			continue
		}
		wanted[id] = true
		if !have[id] {
			add = append(add, id)
		}
	}
	for _, id := range current {
		if !wanted[id] {
			remove = append(remove, id)
		}
	}
	return add, remove
}

// uniqueIDs drops duplicate ids, keeping the first occurrence.
func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// cleanName trims a catalog name and checks its length.
func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLen {
		return "", validationError("name must be 1 to %d characters", maxNameLen)
	}
	return name, nil
}

// cleanOptional trims an optional text field; blank values become nil.
func cleanOptional(field string, v *string, max int) (*string, error) {
	if v == nil {
		return nil, nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil, nil
	}
	if len(s) > max {
		return nil, validationError("%s must be at most %d characters", field, max)
	}
	return &s, nil
}
