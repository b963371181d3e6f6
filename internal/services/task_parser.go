package services

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/yoockh/voicetasks/internal/models"
	"github.com/yoockh/voicetasks/internal/utils"
)

var (
	// fenceRe matches a Markdown code fence with an optional language tag.
	fenceRe = regexp.MustCompile("(?s)```[A-Za-z0-9_+-]*[ \t]*\r?\n?(.*?)```")
	// openFenceRe and closeFenceRe match the halves of an unterminated fence,
	// ex: an answer cut off by the token limit.
	openFenceRe  = regexp.MustCompile("^```[A-Za-z0-9_+-]*[ \t]*\r?\n?")
	closeFenceRe = regexp.MustCompile("```\\s*$")
)

// StripCodeFences returns the body of the first fenced block in s, or s
// trimmed when it has no fence. A lone opening or closing fence is dropped.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	s = closeFenceRe.ReplaceAllString(s, "")
	if i := strings.Index(s, "```"); i >= 0 {
		s = openFenceRe.ReplaceAllString(s[i:], "")
	}
	return strings.TrimSpace(s)
}

// looseString accepts a JSON string, number or null. Models occasionally
// answer "time": 10 or "priority": null.
type looseString string

func (l *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*l = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = looseString(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		if i, err := n.Int64(); err == nil && i >= 0 && i <= 23 {
			// bare hour
			*l = looseString(strconv.FormatInt(i, 10) + ":00")
			return nil
		}
		*l = looseString(n.String())
	}
	return nil
}

type rawTask struct {
	Title    looseString `json:"title"`
	Time     looseString `json:"time"`
	Priority looseString `json:"priority"`
}

// ParseTasks decodes a model answer into task records. It accepts a bare JSON
// array, the same array inside a Markdown fence, or an object wrapping it as
// {"tasks": [...]}. Records are returned as the model wrote them; callers
// normalize.
func ParseTasks(answer string) ([]models.TaskRecord, error) {
	const op = "ParseTasks"

	body := []byte(StripCodeFences(answer))

	var raw []rawTask
	if err := json.Unmarshal(body, &raw); err != nil {
		var wrapped struct {
			Tasks *[]rawTask `json:"tasks"`
		}
		if werr := json.Unmarshal(body, &wrapped); werr != nil || wrapped.Tasks == nil {
			return nil, utils.E(utils.CodeExtractionParse, op, "Failed to parse tasks from AI response", err)
		}
		raw = *wrapped.Tasks
	}

	out := make([]models.TaskRecord, 0, len(raw))
	for _, r := range raw {
		out = append(out, models.TaskRecord{
			Title:    string(r.Title),
			Time:     string(r.Time),
			Priority: models.Priority(r.Priority),
		})
	}
	return out, nil
}
