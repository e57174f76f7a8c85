package entities

import "time"

// ProblemStatus represents whether a report still needs attention
type ProblemStatus string

const (
	ProblemOpen   ProblemStatus = "open"
	ProblemClosed ProblemStatus = "closed"
)

// ProblemReport is a free text complaint from a user
type ProblemReport struct {
	ID        int64
	UserID    int64
	Message   string
	Status    ProblemStatus
	CreatedAt time.Time
}
