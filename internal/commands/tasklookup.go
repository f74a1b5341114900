package commands

import (
	"context"
	"errors"
	"fmt"

	"taskman/internal/service"
)

// lookupPageSize is the page size used when scanning for a task by ID.
const lookupPageSize = 100

// maxLookupPages bounds the scan so a misbehaving backend cannot loop forever.
const maxLookupPages = 1000

// errTaskNotFound is returned when no page contains the task.
var errTaskNotFound = errors.New("task not found")

// taskPageCache holds the listing pages fetched during one command,
// keyed by 0-based page number.
type taskPageCache map[int][]service.Task

// findTaskByID scans the unfiltered listing for id. The backend has no
// get-by-id endpoint. Pages already in cache are not fetched again.
func findTaskByID(ctx context.Context, svc service.Service, id service.TaskID, cache taskPageCache) (service.Task, error) {
	if cache == nil {
		cache = make(taskPageCache)
	}

	for page := 0; page < maxLookupPages; page++ {
		tasks, ok := cache[page]
		if !ok {
			var err error
			tasks, err = svc.ListTasks(ctx, service.Query{PageSize: lookupPageSize, PageNumber: page})
			if err != nil {
				return service.Task{}, err
			}
			cache[page] = tasks
		}

		for _, t := range tasks {
			if t.ID == id {
				return t, nil
			}
		}
		if len(tasks) < lookupPageSize {
			break
		}
	}
	return service.Task{}, fmt.Errorf("%w: %d", errTaskNotFound, id)
}
