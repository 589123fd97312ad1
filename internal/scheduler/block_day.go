package scheduler

import (
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/sma-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/sma-scheduler-api/pkg/errors"
)

// Bucket is one of the three block-day partitions.
type Bucket string

const (
	BucketOdd       Bucket = "ODD"
	BucketEven      Bucket = "EVEN"
	BucketAvailable Bucket = "AVAILABLE"
)

// BlockDayPlan holds a student's non-daily courses split into odd, even and available.
// Every course lives in exactly one bucket.
type BlockDayPlan struct {
	StudentID string
	buckets   map[string]Bucket
}

// NewBlockDayPlan places every course in the available pool and then applies stored assignments.
// Stored assignments for courses outside courseIDs are ignored.
func NewBlockDayPlan(studentID string, courseIDs []string, stored []models.StudentDayAssignment) *BlockDayPlan {
	plan := &BlockDayPlan{StudentID: studentID, buckets: make(map[string]Bucket, len(courseIDs))}
	for _, id := range courseIDs {
		plan.buckets[id] = BucketAvailable
	}
	for _, row := range stored {
		if _, ok := plan.buckets[row.CourseID]; !ok {
			continue
		}
		switch row.DayType {
		case models.DayTypeOdd:
			plan.buckets[row.CourseID] = BucketOdd
		case models.DayTypeEven:
			plan.buckets[row.CourseID] = BucketEven
		}
	}
	return plan
}

// MoveToOdd moves the selected courses into ODD from wherever they are.
func (p *BlockDayPlan) MoveToOdd(courseIDs ...string) error {
	return p.move(BucketOdd, courseIDs, nil)
}

// MoveToEven moves the selected courses into EVEN from wherever they are.
func (p *BlockDayPlan) MoveToEven(courseIDs ...string) error {
	return p.move(BucketEven, courseIDs, nil)
}

// RemoveFromOdd returns ODD courses to the available pool. Courses not in ODD are left alone.
func (p *BlockDayPlan) RemoveFromOdd(courseIDs ...string) error {
	from := BucketOdd
	return p.move(BucketAvailable, courseIDs, &from)
}

// RemoveFromEven returns EVEN courses to the available pool. Courses not in EVEN are left alone.
func (p *BlockDayPlan) RemoveFromEven(courseIDs ...string) error {
	from := BucketEven
	return p.move(BucketAvailable, courseIDs, &from)
}

func (p *BlockDayPlan) move(to Bucket, courseIDs []string, onlyFrom *Bucket) error {
	for _, id := range courseIDs {
		if _, ok := p.buckets[id]; !ok {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("course %s is not an alternating-day course for student %s", id, p.StudentID))
		}
	}
	for _, id := range courseIDs {
		if onlyFrom != nil && p.buckets[id] != *onlyFrom {
			continue
		}
		p.buckets[id] = to
	}
	return nil
}

// Bucket returns the course's current bucket.
func (p *BlockDayPlan) Bucket(courseID string) (Bucket, bool) {
	b, ok := p.buckets[courseID]
	return b, ok
}

// Odd lists ODD courses in id order.
func (p *BlockDayPlan) Odd() []string { return p.list(BucketOdd) }

// Even lists EVEN courses in id order.
func (p *BlockDayPlan) Even() []string { return p.list(BucketEven) }

// Available lists unassigned courses in id order.
func (p *BlockDayPlan) Available() []string { return p.list(BucketAvailable) }

func (p *BlockDayPlan) list(b Bucket) []string {
	out := []string{}
	for id, cur := range p.buckets {
		if cur == b {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Warnings reports empty day buckets. They never block a save.
func (p *BlockDayPlan) Warnings() []string {
	var out []string
	if len(p.Odd()) == 0 {
		out = append(out, "no courses assigned to ODD days")
	}
	if len(p.Even()) == 0 {
		out = append(out, "no courses assigned to EVEN days")
	}
	return out
}

// Assignments returns the full odd/even mapping to persist for the student.
func (p *BlockDayPlan) Assignments(now time.Time) []models.StudentDayAssignment {
	out := make([]models.StudentDayAssignment, 0, len(p.buckets))
	for _, id := range p.Odd() {
		out = append(out, models.StudentDayAssignment{StudentID: p.StudentID, CourseID: id, DayType: models.DayTypeOdd, UpdatedAt: now})
	}
	for _, id := range p.Even() {
		out = append(out, models.StudentDayAssignment{StudentID: p.StudentID, CourseID: id, DayType: models.DayTypeEven, UpdatedAt: now})
	}
	return out
}
