package lesson

import (
	"strings"

	"github.com/trezcool/lessondesk/core"
)

// Class is a parsed class selector: "<program tokens> <DayName> <time tokens>".
type Class struct {
	Program string `json:"program"`
	Day     string `json:"day,omitempty"`
	Time    string `json:"time,omitempty"`
}

// ParseClass splits `selector` on its first English weekday token.
// A selector without a weekday is all program.
func ParseClass(selector string) (Class, error) {
	tokens := strings.Fields(selector)
	if len(tokens) == 0 {
		return Class{}, ErrNoClassSelected
	}
	for i, tok := range tokens {
		if day, ok := core.ParseWeekday(tok); ok {
			return Class{
				Program: strings.Join(tokens[:i], " "),
				Day:     day.String(),
				Time:    strings.Join(tokens[i+1:], " "),
			}, nil
		}
	}
	return Class{Program: strings.Join(tokens, " ")}, nil
}

func (c Class) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.Program, c.Day, c.Time} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func (c Class) Empty() bool {
	return c.String() == ""
}
