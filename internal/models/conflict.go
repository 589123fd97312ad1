package models

// ConflictType enumerates the detector's findings.
type ConflictType string

const (
	ConflictTeacherDoubleBooked   ConflictType = "TEACHER_DOUBLE_BOOKED"
	ConflictRoomDoubleBooked      ConflictType = "ROOM_DOUBLE_BOOKED"
	ConflictCapacityExceeded      ConflictType = "CAPACITY_EXCEEDED"
	ConflictTeacherUnavailable    ConflictType = "TEACHER_UNAVAILABLE"
	ConflictRoomRestricted        ConflictType = "ROOM_RESTRICTED_VIOLATION"
	ConflictIncompleteSlot        ConflictType = "INCOMPLETE_SLOT"
	ConflictPrerequisiteViolation ConflictType = "PREREQUISITE_VIOLATION"
)

// ConflictTypeOrder fixes the order in which reasons are reported.
var ConflictTypeOrder = []ConflictType{
	ConflictIncompleteSlot,
	ConflictTeacherDoubleBooked,
	ConflictRoomDoubleBooked,
	ConflictCapacityExceeded,
	ConflictTeacherUnavailable,
	ConflictRoomRestricted,
	ConflictPrerequisiteViolation,
}

// ConflictRecord is one detected problem affecting one or more slots.
type ConflictRecord struct {
	Type       ConflictType `json:"type"`
	SlotIDs    []string     `json:"slot_ids"`
	ResourceID string       `json:"resource_id,omitempty"`
	Message    string       `json:"message"`
}

// ValidationSummary tallies detector output for a schedule.
type ValidationSummary struct {
	ScheduleID      string               `json:"schedule_id"`
	TotalSlots      int                  `json:"total_slots"`
	ConflictedSlots int                  `json:"conflicted_slots"`
	ByType          map[ConflictType]int `json:"by_type"`
	Conflicts       []ConflictRecord     `json:"conflicts"`
	Publishable     bool                 `json:"publishable"`
}
