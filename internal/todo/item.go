// Package todo holds the ToDoItem entity, the rules that build a valid
// item out of loosely typed JSON, and the error vocabulary shared by the
// store, service and HTTP layers.
package todo

import (
	"encoding/json"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mitchellh/mapstructure"
)

// DeadlineLayout is the canonical UTC form deadlines are stored in.
const DeadlineLayout = http.TimeFormat

type Item struct {
	ID          int64    `json:"id" bson:"id"`
	Description string   `json:"description" bson:"description"`
	Tags        []string `json:"tags" bson:"tags"`
	Deadline    string   `json:"deadline,omitempty" bson:"deadline,omitempty"`
	Student     string   `json:"-" bson:"student,omitempty"`
}

func New(description string) *Item {
	return &Item{
		Description: description,
		Tags:        []string{},
	}
}

// FromJSON builds an item from a decoded JSON object. Only a missing or
// unusable description is an error: id, tags and deadline are copied when
// they are well formed and silently dropped otherwise.
func FromJSON(raw map[string]any) (*Item, error) {
	value, ok := raw["description"]
	if !ok {
		return nil, &ValidationError{Field: "description", Reason: "missing"}
	}

	description, ok := value.(string)
	if !ok {
		return nil, &ValidationError{Field: "description", Reason: "must be a string"}
	}

	if strings.TrimSpace(description) == "" {
		return nil, &ValidationError{Field: "description", Reason: "must not be empty"}
	}

	item := New(description)

	if v, ok := raw["id"]; ok {
		if id, ok := parseID(v); ok {
			item.ID = id
		}
	}

	if v, ok := raw["tags"]; ok {
		item.Tags = NormalizeTags(v)
	}

	if v, ok := raw["deadline"]; ok {
		if deadline, ok := ParseDeadline(v); ok {
			item.Deadline = deadline
		}
	}

	return item, nil
}

// NormalizeTags keeps the string elements of a sequence, trimmed, dropping
// the ones left empty. Anything that is not a sequence yields no tags.
func NormalizeTags(v any) []string {
	tags := []string{}

	var values []any
	if err := mapstructure.Decode(v, &values); err != nil {
		return tags
	}

	for _, value := range values {
		s, ok := value.(string)
		if !ok {
			continue
		}

		if s = strings.TrimSpace(s); s != "" {
			tags = append(tags, s)
		}
	}

	return tags
}

// ParseDeadline returns the deadline in DeadlineLayout when v is a string
// holding a recognizable timestamp.
func ParseDeadline(v any) (string, bool) {
	t, ok := parseTime(v)
	if !ok {
		return "", false
	}

	return t.Format(DeadlineLayout), true
}

func (i *Item) IsEqual(other *Item) bool {
	if other == nil {
		return false
	}

	return i.ID == other.ID &&
		i.Description == other.Description &&
		sameTags(i.Tags, other.Tags) &&
		sameDeadline(i.Deadline, other.Deadline)
}

func parseTime(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}

	return t.UTC(), true
}

func parseID(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
			return 0, false
		}
	case json.Number:
		if id, err := n.Int64(); err == nil {
			return id, true
		}

		f, err := n.Float64()
		if err != nil {
			return 0, false
		}

		return parseID(f)
	case int, int32, int64:
	case string:
		v = strings.TrimSpace(n)
	default:
		return 0, false
	}

	var id int64
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &id,
	})
	if err != nil {
		return 0, false
	}

	if err := decoder.Decode(v); err != nil {
		return 0, false
	}

	return id, true
}

func sameTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

// sameDeadline compares by instant; two unparsable deadlines are equal.
func sameDeadline(a, b string) bool {
	ta, okA := parseTime(a)
	tb, okB := parseTime(b)

	switch {
	case !okA && !okB:
		return true
	case okA != okB:
		return false
	default:
		return ta.Equal(tb)
	}
}
