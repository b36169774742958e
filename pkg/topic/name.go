// Package topic names the streams item change events are published on.
package topic

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const ItemsPrefix = "todo-items"

var nameRegex = regexp.MustCompile("^[^#+$][^#+]*$")

type Name struct {
	Value string `json:"value"`
}

func NewName(value string) (*Name, error) {
	if value == "" {
		return nil, fmt.Errorf("topic name: %s cannot be empty", value)
	}

	if len(value) > 65535 {
		return nil, fmt.Errorf("topic name: %s cannot have more than 65535 bytes", value)
	}

	if !nameRegex.MatchString(value) {
		return nil, fmt.Errorf("topic name: %s format is invalid", value)
	}

	return &Name{value}, nil
}

// Item returns the topic of a single item, e.g. todo-items/42.
func Item(id int64) *Name {
	return &Name{ItemsPrefix + "/" + strconv.FormatInt(id, 10)}
}

// ItemID extracts the id from an item topic.
func (n *Name) ItemID() (int64, bool) {
	rest, ok := strings.CutPrefix(n.Value, ItemsPrefix+"/")
	if !ok {
		return 0, false
	}

	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}

	return id, true
}

func (n *Name) String() string {
	return n.Value
}
