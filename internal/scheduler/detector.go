package scheduler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/sma-scheduler-api/internal/models"
)

// DetectionResult carries annotated slots and the conflicts behind the annotations.
type DetectionResult struct {
	Slots     []models.ScheduleSlot
	Conflicts []models.ConflictRecord
	Summary   models.ValidationSummary
}

type findings map[int]map[models.ConflictType][]string

func (f findings) add(i int, kind models.ConflictType, detail string) {
	if f[i] == nil {
		f[i] = map[models.ConflictType][]string{}
	}
	f[i][kind] = append(f[i][kind], detail)
}

// DetectConflicts scans the problem's slots and rewrites only their conflict
// annotations. Running it twice on unchanged input yields identical output.
func DetectConflicts(p *Problem) DetectionResult {
	ev := newEvaluation(p)
	found := findings{}
	records := []models.ConflictRecord{}

	record := func(kind models.ConflictType, resource, message string, idx ...int) {
		records = append(records, models.ConflictRecord{Type: kind, SlotIDs: ids(ev, idx...), ResourceID: resource, Message: message})
	}

	for _, i := range ev.active {
		slot := ev.slot(i)
		if slot.IsComplete() {
			continue
		}
		detail := "missing " + strings.Join(missingFields(slot), ", ")
		found.add(i, models.ConflictIncompleteSlot, detail)
		record(models.ConflictIncompleteSlot, slot.CourseID, fmt.Sprintf("slot %s is %s", slot.ID, detail), i)
	}

	for _, teacherID := range sortedKeys(ev.teachers) {
		ev.overlappingPairs(ev.teachers[teacherID], func(a, b int) {
			sa, sb := ev.slot(a), ev.slot(b)
			found.add(a, models.ConflictTeacherDoubleBooked, fmt.Sprintf("teacher %s also in slot %s", teacherID, sb.ID))
			found.add(b, models.ConflictTeacherDoubleBooked, fmt.Sprintf("teacher %s also in slot %s", teacherID, sa.ID))
			record(models.ConflictTeacherDoubleBooked, teacherID,
				fmt.Sprintf("teacher %s is booked at %s and %s", teacherID, ev.times[a], ev.times[b]), a, b)
		})
	}

	for _, roomID := range sortedKeys(ev.rooms) {
		ev.overlappingPairs(ev.rooms[roomID], func(a, b int) {
			sa, sb := ev.slot(a), ev.slot(b)
			if concurrentUseAllowed(p, sa, sb, roomID) {
				return
			}
			found.add(a, models.ConflictRoomDoubleBooked, fmt.Sprintf("room %s also used by slot %s", roomID, sb.ID))
			found.add(b, models.ConflictRoomDoubleBooked, fmt.Sprintf("room %s also used by slot %s", roomID, sa.ID))
			record(models.ConflictRoomDoubleBooked, roomID,
				fmt.Sprintf("room %s is booked at %s and %s", roomID, ev.times[a], ev.times[b]), a, b)
		})
	}

	for _, i := range ev.active {
		slot := ev.slot(i)
		room, hasRoom := p.room(slot.RoomID)
		if hasRoom && slot.IsOvercapacity(&room) {
			detail := fmt.Sprintf("%d students in room %s with capacity %d", len(slot.StudentIDs), room.ID, *room.Capacity)
			found.add(i, models.ConflictCapacityExceeded, detail)
			record(models.ConflictCapacityExceeded, room.ID, detail, i)
		}

		if ts, timed := ev.times[i]; timed && p.Config.RespectTeacherAvailability {
			for _, teacherID := range occupants(slot) {
				teacher, ok := p.Teachers[teacherID]
				if ok && teacher.IsUnavailable(ts) {
					detail := fmt.Sprintf("teacher %s unavailable at %s", teacherID, ts)
					found.add(i, models.ConflictTeacherUnavailable, detail)
					record(models.ConflictTeacherUnavailable, teacherID, detail, i)
				}
			}
		}

		if teacher, ok := p.teacher(slot.TeacherID); ok && slot.RoomID != nil && restrictedFrom(teacher, *slot.RoomID) {
			detail := fmt.Sprintf("teacher %s is restricted from room %s", teacher.ID, *slot.RoomID)
			found.add(i, models.ConflictRoomRestricted, detail)
			record(models.ConflictRoomRestricted, teacher.ID, detail, i)
		}

		if p.Config.EnforcePrerequisiteOrder {
			if missing := missingPrerequisites(p, slot); len(missing) > 0 {
				sort.Strings(missing)
				detail := fmt.Sprintf("students missing prerequisites: %s", strings.Join(missing, ", "))
				found.add(i, models.ConflictPrerequisiteViolation, detail)
				record(models.ConflictPrerequisiteViolation, slot.CourseID, detail, i)
			}
		}
	}

	for i := range p.Slots {
		p.Slots[i].MarkConflict(reasonText(found[i]))
	}

	sortRecords(records)
	out := DetectionResult{
		Slots:     make([]models.ScheduleSlot, len(p.Slots)),
		Conflicts: records,
	}
	for i := range p.Slots {
		out.Slots[i] = p.Slots[i].Clone()
	}
	out.Summary = summarize(out.Slots, records)
	return out
}

func missingFields(slot *models.ScheduleSlot) []string {
	var out []string
	if slot.CourseID == "" {
		out = append(out, "course")
	}
	if slot.TeacherID == nil {
		out = append(out, "teacher")
	}
	if slot.RoomID == nil {
		out = append(out, "room")
	}
	if slot.Day == nil {
		out = append(out, "day")
	}
	if slot.StartTime == nil {
		out = append(out, "start time")
	}
	if slot.EndTime == nil {
		out = append(out, "end time")
	}
	return out
}

func reasonText(byType map[models.ConflictType][]string) string {
	if len(byType) == 0 {
		return ""
	}
	parts := make([]string, 0, len(byType))
	for _, kind := range models.ConflictTypeOrder {
		details := byType[kind]
		if len(details) == 0 {
			continue
		}
		sort.Strings(details)
		details = dedupe(details)
		parts = append(parts, fmt.Sprintf("%s: %s", kind, strings.Join(details, ", ")))
	}
	return strings.Join(parts, "; ")
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}

func sortRecords(records []models.ConflictRecord) {
	rank := make(map[models.ConflictType]int, len(models.ConflictTypeOrder))
	for i, kind := range models.ConflictTypeOrder {
		rank[kind] = i
	}
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if rank[a.Type] != rank[b.Type] {
			return rank[a.Type] < rank[b.Type]
		}
		ka, kb := strings.Join(a.SlotIDs, ","), strings.Join(b.SlotIDs, ",")
		if ka != kb {
			return ka < kb
		}
		return a.ResourceID < b.ResourceID
	})
}

// Blocking reports whether a conflict type prevents publishing.
func Blocking(kind models.ConflictType) bool {
	return kind != models.ConflictPrerequisiteViolation
}

func summarize(slots []models.ScheduleSlot, records []models.ConflictRecord) models.ValidationSummary {
	summary := models.ValidationSummary{
		TotalSlots:  len(slots),
		ByType:      map[models.ConflictType]int{},
		Conflicts:   records,
		Publishable: true,
	}
	if len(slots) > 0 {
		summary.ScheduleID = slots[0].ScheduleID
	}
	for _, slot := range slots {
		if slot.HasConflict {
			summary.ConflictedSlots++
		}
	}
	for _, rec := range records {
		summary.ByType[rec.Type]++
		if Blocking(rec.Type) {
			summary.Publishable = false
		}
	}
	return summary
}
