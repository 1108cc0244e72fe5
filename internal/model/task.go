package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

const (
	PriorityExtreme  = "Extreme"
	PriorityModerate = "Moderate"
	PriorityLow      = "Low"

	StatusNotStarted = "Not Started"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"

	DefaultTaskTitle = "Untitled task"
)

type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Desc        string `json:"desc"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	Deadline    string `json:"deadline"`
	Accent      string `json:"accent,omitempty"`
	CoverImage  string `json:"coverImage"`
	CompletedAt string `json:"completedAt,omitempty"`
}

// TaskInput is the payload of a new task.
type TaskInput struct {
	Title       string `json:"title"`
	Desc        string `json:"desc,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Status      string `json:"status,omitempty"`
	Deadline    string `json:"deadline,omitempty"`
	Accent      string `json:"accent,omitempty"`
	CoverImage  string `json:"coverImage,omitempty"`
	CompletedAt string `json:"completedAt,omitempty"`
}

// TaskChanges is a partial update; nil fields are left untouched.
type TaskChanges struct {
	Title       *string `json:"title,omitempty"`
	Desc        *string `json:"desc,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	Status      *string `json:"status,omitempty"`
	Deadline    *string `json:"deadline,omitempty"`
	Accent      *string `json:"accent,omitempty"`
	CoverImage  *string `json:"coverImage,omitempty"`
	CompletedAt *string `json:"completedAt,omitempty"`
}

func IsValidPriority(value string) bool {
	return value == PriorityExtreme || value == PriorityModerate || value == PriorityLow
}

func IsValidStatus(value string) bool {
	return value == StatusNotStarted || value == StatusInProgress || value == StatusCompleted
}

// Apply merges changes over t without normalizing the result.
func (t Task) Apply(changes TaskChanges) Task {
	if changes.Title != nil {
		t.Title = *changes.Title
	}
	if changes.Desc != nil {
		t.Desc = *changes.Desc
	}
	if changes.Priority != nil {
		t.Priority = *changes.Priority
	}
	if changes.Status != nil {
		t.Status = *changes.Status
	}
	if changes.Deadline != nil {
		t.Deadline = *changes.Deadline
	}
	if changes.Accent != nil {
		t.Accent = *changes.Accent
	}
	if changes.CoverImage != nil {
		t.CoverImage = *changes.CoverImage
	}
	if changes.CompletedAt != nil {
		t.CompletedAt = *changes.CompletedAt
	}
	return t
}

// NormalizeTask fills defaults and enforces that CompletedAt is set exactly
// when the task is Completed. newID supplies ids for tasks that lack one.
// The second result reports whether anything changed.
func NormalizeTask(t Task, now time.Time, newID func() string) (Task, bool) {
	next := t
	if next.ID == "" {
		next.ID = newID()
	}
	if next.Title == "" {
		next.Title = DefaultTaskTitle
	}
	if next.Priority == "" {
		next.Priority = PriorityModerate
	}
	if next.Status == "" {
		next.Status = StatusNotStarted
	}
	if next.Deadline != "" {
		next.Deadline = NormalizeDeadline(next.Deadline)
	}
	if next.Status == StatusCompleted {
		if next.CompletedAt == "" {
			next.CompletedAt = FormatTimestamp(now)
		}
	} else {
		next.CompletedAt = ""
	}
	return next, next != t
}

// BuildTask turns an input into a fresh local task.
func BuildTask(input TaskInput, now time.Time, newID func() string) Task {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = DefaultTaskTitle
	}
	task := Task{
		ID:          newID(),
		Title:       title,
		Desc:        strings.TrimSpace(input.Desc),
		Priority:    input.Priority,
		Status:      input.Status,
		Deadline:    NormalizeDeadline(input.Deadline),
		Accent:      input.Accent,
		CoverImage:  strings.TrimSpace(input.CoverImage),
		CompletedAt: input.CompletedAt,
	}
	normalized, _ := NormalizeTask(task, now, newID)
	return normalized
}

// StoredTask is the on-disk shape, which may still carry the fields older
// versions wrote instead of a deadline.
type StoredTask struct {
	Task
	Created string `json:"created,omitempty"`
	Date    string `json:"date,omitempty"`
}

// Upgrade moves legacy created/date fields into Deadline.
func (s StoredTask) Upgrade() (Task, bool) {
	task := s.Task
	if task.Deadline == "" && s.Created != "" {
		task.Deadline = s.Created
	}
	if task.Deadline == "" && s.Date != "" {
		task.Deadline = s.Date
	}
	return task, s.Created != "" || s.Date != ""
}

// APITask accepts the field aliases the remote API has used over time.
type APITask struct {
	ID          FlexibleID `json:"id"`
	TaskID      FlexibleID `json:"taskId"`
	UUID        FlexibleID `json:"uuid"`
	ExternalID  FlexibleID `json:"externalId"`
	MongoID     FlexibleID `json:"_id"`
	Title       string     `json:"title"`
	Name        string     `json:"name"`
	Desc        *string    `json:"desc"`
	Description *string    `json:"description"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	Deadline    *string    `json:"deadline"`
	DueDate     *string    `json:"dueDate"`
	DeadlineAt  *string    `json:"deadlineAt"`
	Accent      string     `json:"accent"`
	CompletedAt string     `json:"completedAt"`
	CoverImage  *string    `json:"coverImage"`
	ImageURL    *string    `json:"imageUrl"`
}

func (a APITask) Task() Task {
	return Task{
		ID:          firstNonEmpty(string(a.ID), string(a.TaskID), string(a.UUID), string(a.ExternalID), string(a.MongoID)),
		Title:       firstNonEmpty(a.Title, a.Name),
		Desc:        firstSet(a.Desc, a.Description),
		Priority:    a.Priority,
		Status:      a.Status,
		Deadline:    firstSet(a.Deadline, a.DueDate, a.DeadlineAt),
		Accent:      a.Accent,
		CompletedAt: a.CompletedAt,
		CoverImage:  firstSet(a.CoverImage, a.ImageURL),
	}
}

// FlexibleID decodes either a JSON string or a JSON number.
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		*f = FlexibleID(strconv.FormatInt(i, 10))
		return nil
	}
	*f = FlexibleID(n.String())
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstSet(values ...*string) string {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return ""
}
