package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"taskman/internal/service"
)

// ErrTaskRefRequired indicates no task ID was provided.
var ErrTaskRefRequired = errors.New("task id required")

// ParseTaskID parses one task ID. A leading '#' is accepted, as rows
// are often copied from chat or issue trackers.
func ParseTaskID(s string) (service.TaskID, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if !isAllDigits(s) {
		return 0, fmt.Errorf("invalid task id: %s", s)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid task id: %s", s)
	}
	return service.TaskID(n), nil
}

// ParseTaskIDs parses every positional argument as a task ID.
// Duplicates are dropped, keeping first-seen order.
func ParseTaskIDs(args []string) ([]service.TaskID, error) {
	if len(args) == 0 {
		return nil, ErrTaskRefRequired
	}
	seen := make(map[service.TaskID]bool, len(args))
	ids := make([]service.TaskID, 0, len(args))
	for _, arg := range args {
		id, err := ParseTaskID(arg)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
