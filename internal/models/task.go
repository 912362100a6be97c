package models

import "strings"

// TaskStatus represents the kanban column of a task
type TaskStatus string

const (
	TaskStatusTodo  TaskStatus = "todo"
	TaskStatusDoing TaskStatus = "doing"
	TaskStatusDone  TaskStatus = "done"
)

// taskStatusOrder is the left-to-right order of the board columns
var taskStatusOrder = []TaskStatus{TaskStatusTodo, TaskStatusDoing, TaskStatusDone}

// TaskStatuses returns the columns in board order
func TaskStatuses() []TaskStatus {
	out := make([]TaskStatus, len(taskStatusOrder))
	copy(out, taskStatusOrder)
	return out
}

// Valid reports whether s is one of the known columns
func (s TaskStatus) Valid() bool {
	return s.index() >= 0
}

// statusAliases maps the spelled-out column names to the stored values
var statusAliases = map[string]TaskStatus{
	"to-do":       TaskStatusTodo,
	"in-progress": TaskStatusDoing,
}

// NormalizeTaskStatus returns the stored value for s, accepting the spelled-out
// aliases "to-do" and "in-progress". Unknown values report false.
func NormalizeTaskStatus(s string) (TaskStatus, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	if status, ok := statusAliases[v]; ok {
		return status, true
	}
	status := TaskStatus(v)
	return status, status.Valid()
}

func (s TaskStatus) index() int {
	for i, status := range taskStatusOrder {
		if status == s {
			return i
		}
	}
	return -1
}

// Pending reports whether the task still needs work
func (s TaskStatus) Pending() bool {
	return s == TaskStatusTodo || s == TaskStatusDoing
}

// Label returns the human readable column name
func (s TaskStatus) Label() string {
	switch s {
	case TaskStatusTodo:
		return "To do"
	case TaskStatusDoing:
		return "In progress"
	case TaskStatusDone:
		return "Done"
	default:
		return string(s)
	}
}

// Direction is a one-step move along the board
type Direction string

const (
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// Valid reports whether d is left or right
func (d Direction) Valid() bool {
	return d == DirectionLeft || d == DirectionRight
}

// Move returns the status one column away in the given direction.
// Moving past either end of the board returns s unchanged.
func (s TaskStatus) Move(d Direction) TaskStatus {
	i := s.index()
	if i < 0 {
		return s
	}
	switch d {
	case DirectionLeft:
		i--
	case DirectionRight:
		i++
	}
	if i < 0 || i >= len(taskStatusOrder) {
		return s
	}
	return taskStatusOrder[i]
}

// Priority represents how urgent a task is
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// ChecklistItem is a sub-step of a task
type ChecklistItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// Task represents a card on the kanban board
type Task struct {
	ID        string          `json:"id"`
	Content   string          `json:"content"`
	Status    TaskStatus      `json:"status"`
	Priority  Priority        `json:"priority"`
	Checklist []ChecklistItem `json:"checklist"`
}

// Clone returns a copy of the task that shares no checklist storage with t
func (t Task) Clone() Task {
	c := t
	c.Checklist = make([]ChecklistItem, len(t.Checklist))
	copy(c.Checklist, t.Checklist)
	return c
}

// ChecklistProgress returns the number of done items and the total
func (t Task) ChecklistProgress() (done, total int) {
	for _, item := range t.Checklist {
		if item.Done {
			done++
		}
	}
	return done, len(t.Checklist)
}

// DefaultTasks returns the example board shown on first start
func DefaultTasks() []Task {
	return []Task{
		{ID: "1", Content: "Set up the development environment", Status: TaskStatusDone, Priority: PriorityHigh, Checklist: []ChecklistItem{}},
		{ID: "2", Content: "Write the API documentation", Status: TaskStatusTodo, Priority: PriorityMedium, Checklist: []ChecklistItem{
			{ID: "c1", Text: "Login endpoint", Done: false},
		}},
	}
}
