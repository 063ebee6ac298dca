package taskwarrior

import (
	"fmt"
	"strings"
	"time"

	"github.com/harrisonrobin/eisen/pkg/model"
)

const (
	PENDING   = "pending"
	COMPLETED = "completed"
	WAITING   = "waiting"
	DELETED   = "deleted"
)

type CustomTime struct {
	time.Time
}

const taskwarriorTimeLayout = "20060102T150405Z" // YYYYMMDDTHHMMSSZ, UTC

func (ct *CustomTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "0" {
		ct.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(taskwarriorTimeLayout, s)
	if err != nil {
		return fmt.Errorf("failed to parse Taskwarrior time string '%s': %w", s, err)
	}
	ct.Time = t
	return nil
}

func (ct CustomTime) MarshalJSON() ([]byte, error) {
	if ct.Time.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + ct.Time.Format(taskwarriorTimeLayout) + `"`), nil
}

type Annotation struct {
	Description string      `json:"description"`
	Entry       *CustomTime `json:"entry"`
}

type Task struct {
	UUID        string       `json:"uuid"`
	Description string       `json:"description"`
	Due         *CustomTime  `json:"due,omitempty"`
	Scheduled   *CustomTime  `json:"scheduled,omitempty"`
	Status      string       `json:"status"`
	Priority    string       `json:"priority,omitempty"`
	Project     string       `json:"project,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Open reports whether the task still needs doing.
func (t Task) Open() bool {
	return t.Status == PENDING || t.Status == WAITING
}

// ToDraft maps a Taskwarrior task onto a draft. Priority L is not
// important; H, M or none is. The due date falls back to scheduled.
func (t Task) ToDraft() model.Draft {
	d := model.Draft{
		Title:      strings.TrimSpace(t.Description),
		Importance: model.Important,
		Source:     "taskwarrior:" + t.UUID,
	}
	if strings.EqualFold(t.Priority, "L") {
		d.Importance = model.NotImportant
	}
	switch {
	case t.Due != nil && !t.Due.IsZero():
		due := t.Due.Time
		d.Due = &due
	case t.Scheduled != nil && !t.Scheduled.IsZero():
		due := t.Scheduled.Time
		d.Due = &due
	}

	var lines []string
	var header []string
	if t.Project != "" {
		header = append(header, "project:"+t.Project)
	}
	for _, tag := range t.Tags {
		header = append(header, "#"+tag)
	}
	if len(header) > 0 {
		lines = append(lines, strings.Join(header, " "))
	}
	for _, ann := range t.Annotations {
		lines = append(lines, "‣ "+ann.Description)
	}
	d.Description = strings.Join(lines, "\n")
	return d
}
