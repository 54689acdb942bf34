// Package screen names the three DES screens and the order they cycle in.
package screen

import (
	"fmt"
	"strings"
)

// ID identifies a DES screen.
type ID string

const (
	Current    ID = "DES1"
	Historical ID = "DES2"
	Yearly     ID = "DES3"
)

// All lists the screens in navigation order.
var All = []ID{Current, Historical, Yearly}

// Parse accepts a screen id ("DES2") or its slug ("historical").
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	for _, id := range All {
		if strings.EqualFold(s, string(id)) || strings.EqualFold(s, id.Slug()) {
			return id, nil
		}
	}
	return "", fmt.Errorf("unknown screen %q", s)
}

func (id ID) index() int {
	for i, s := range All {
		if s == id {
			return i
		}
	}
	return -1
}

// Valid reports whether id is one of the three screens.
func (id ID) Valid() bool {
	return id.index() >= 0
}

// Next returns the following screen, wrapping from the last to the first.
func (id ID) Next() ID {
	return All[(id.index()+1)%len(All)]
}

// Prev returns the preceding screen, wrapping from the first to the last.
func (id ID) Prev() ID {
	i := id.index()
	if i < 0 {
		return All[0]
	}
	return All[(i-1+len(All))%len(All)]
}

// Title is the heading shown for the screen.
func (id ID) Title() string {
	switch id {
	case Current:
		return "Current Condition"
	case Historical:
		return "Historical Data"
	case Yearly:
		return "Yearly Comparison"
	default:
		return string(id)
	}
}

// Slug is the path segment used by the HTTP API.
func (id ID) Slug() string {
	switch id {
	case Current:
		return "current"
	case Historical:
		return "historical"
	case Yearly:
		return "yearly"
	default:
		return strings.ToLower(string(id))
	}
}

// ChatTable is the record-store table holding the screen's chat log.
func (id ID) ChatTable() string {
	return "tblChat_" + string(id)
}
