package tasks

import (
	"fmt"
	"strings"
	"time"

	"github.com/s1natex/tasktracker-api/internal/web"
)

const maxTextLen = 1000

type Task struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Text      string    `json:"text"`
	IsDone    bool      `json:"isDone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CreateTask struct {
	Text string `json:"text"`
}

func (c CreateTask) Validate() error {
	var f web.Fields
	if strings.TrimSpace(c.Text) == "" {
		f.Add("text", "text is required")
	}
	if len(c.Text) > maxTextLen {
		f.Add("text", fmt.Sprintf("text must be at most %d characters", maxTextLen))
	}
	return f.Err()
}

// EditTask is a partial update; nil fields are left untouched.
type EditTask struct {
	Text   *string `json:"text"`
	IsDone *bool   `json:"isDone"`
}

func (e EditTask) Validate() error {
	var f web.Fields
	if e.Text != nil && len(*e.Text) > maxTextLen {
		f.Add("text", fmt.Sprintf("text must be at most %d characters", maxTextLen))
	}
	return f.Err()
}

func (e EditTask) empty() bool {
	return e.Text == nil && e.IsDone == nil
}

// apply returns t with the patch fields set.
func (e EditTask) apply(t Task) Task {
	if e.Text != nil {
		t.Text = *e.Text
	}
	if e.IsDone != nil {
		t.IsDone = *e.IsDone
	}
	return t
}
