package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"taskman/internal/service"
)

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

// runTaskForm asks for every task field, starting from the values in t.
func runTaskForm(t *service.Task) error {
	priority := string(t.Priority)
	status := string(t.Status)

	priorities := make([]huh.Option[string], len(service.Priorities))
	for i, p := range service.Priorities {
		priorities[i] = huh.NewOption(string(p), string(p))
	}
	statuses := make([]huh.Option[string], len(service.Statuses))
	for i, s := range service.Statuses {
		statuses[i] = huh.NewOption(string(s), string(s))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&t.Title).
				Validate(required("title")),
			huh.NewText().
				Title("Description").
				Value(&t.Description).
				Validate(required("description")),
			huh.NewSelect[string]().
				Title("Priority").
				Options(priorities...).
				Value(&priority),
			huh.NewSelect[string]().
				Title("Status").
				Options(statuses...).
				Value(&status),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("form aborted: %w", err)
	}

	t.Title = strings.TrimSpace(t.Title)
	t.Priority = service.Priority(priority)
	t.Status = service.Status(status)
	return nil
}
