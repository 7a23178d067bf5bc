package task

// Patch is a partial update. Each field is absent (untouched), null, or a value.
//
// A null title, status or priority is ignored. A null description clears it and a
// null assignedTo removes the assignee.
type Patch struct {
	Title       Optional[string] `json:"title,omitzero"`
	Description Optional[string] `json:"description,omitzero"`
	Status      Optional[string] `json:"status,omitzero"`
	Priority    Optional[string] `json:"priority,omitzero"`
	AssignedTo  Optional[string] `json:"assignedTo,omitzero"`
	Version     Optional[int64]  `json:"version,omitzero"`
}

// IsEmpty reports whether the patch touches no field.
func (p Patch) IsEmpty() bool {
	return p.Title.IsAbsent() && p.Description.IsAbsent() && p.Status.IsAbsent() &&
		p.Priority.IsAbsent() && p.AssignedTo.IsAbsent()
}
