package types

import "time"

// Grade is one scored entry for a student in a subject.
//
// ID and Timestamp are assigned on insert and never change afterwards.
type Grade struct {
	ID        int       `json:"id"`
	Student   string    `json:"student"`
	Subject   string    `json:"subject"`
	Type      string    `json:"type"`      // Evaluation category, e.g. "Prova Final"
	Value     float64   `json:"value"`     // Numeric score
	Timestamp time.Time `json:"timestamp"` // Creation instant
}

// PartialGrade carries the caller-supplied subset of mutable grade fields.
// A nil field is absent and leaves the stored value untouched.
type PartialGrade struct {
	Student *string  `json:"student,omitempty"`
	Subject *string  `json:"subject,omitempty"`
	Type    *string  `json:"type,omitempty"`
	Value   *float64 `json:"value,omitempty"`
}

// Empty reports whether no field was supplied.
func (p PartialGrade) Empty() bool {
	return p.Student == nil && p.Subject == nil && p.Type == nil && p.Value == nil
}

// DeletedGrade is the response view of a removed grade. The id is dropped
// because it no longer refers to anything.
type DeletedGrade struct {
	Student   string    `json:"student"`
	Subject   string    `json:"subject"`
	Type      string    `json:"type"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Deleted converts g into its post-deletion view.
func (g Grade) Deleted() DeletedGrade {
	return DeletedGrade{
		Student:   g.Student,
		Subject:   g.Subject,
		Type:      g.Type,
		Value:     g.Value,
		Timestamp: g.Timestamp,
	}
}

// Collection is the persisted document: every grade in insertion order plus
// the next identifier to hand out.
//
// File layout:
//
//	{"nextId": 3, "grades": [{"id": 0, ...}, {"id": 2, ...}]}
type Collection struct {
	NextID int     `json:"nextId"`
	Grades []Grade `json:"grades"`
}

// Clone returns a copy whose grade slice does not alias c's.
func (c Collection) Clone() Collection {
	grades := make([]Grade, len(c.Grades))
	copy(grades, c.Grades)
	return Collection{NextID: c.NextID, Grades: grades}
}

// IndexOf returns the position of the grade with the given id, or -1.
func (c Collection) IndexOf(id int) int {
	for i, g := range c.Grades {
		if g.ID == id {
			return i
		}
	}
	return -1
}
