// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"taskman/internal/service"
)

const (
	// ListSeparator is the separator line under the list header.
	ListSeparator = "------------"

	// Max title width in a row before truncation
	maxTitleWidth = 60
)

// FormatHeader writes the column header for task rows.
func FormatHeader(w io.Writer) {
	fmt.Fprintf(w, "%6s  %-6s  %-11s  %s\n", "ID", "PRIO", "STATUS", "TITLE")
	fmt.Fprintln(w, ListSeparator)
}

// FormatTask formats a task row.
// Format: "{ID:>6}  {PRIORITY:<6}  {STATUS:<11}  {TITLE}\n"
func FormatTask(w io.Writer, task service.Task) {
	fmt.Fprintf(w, "%6d  %-6s  %-11s  %s\n", task.ID, task.Priority, task.Status, truncate(normalizeText(task.Title), maxTitleWidth))
}

// FormatTaskDetail formats every field of a task, one per line.
func FormatTaskDetail(w io.Writer, task service.Task) {
	fmt.Fprintf(w, "id:          %d\n", task.ID)
	fmt.Fprintf(w, "title:       %s\n", normalizeText(task.Title))
	fmt.Fprintf(w, "priority:    %s\n", task.Priority)
	fmt.Fprintf(w, "status:      %s\n", task.Status)
	fmt.Fprintf(w, "description: %s\n", normalizeText(task.Description))
}

// FormatPageFooter formats the pagination line under a listing.
// page is 0-based; the footer shows it 1-based as the --page flag takes it.
func FormatPageFooter(w io.Writer, page, pageSize int, hasNext bool) {
	fmt.Fprintln(w, ListSeparator)
	line := fmt.Sprintf("page %d (%d per page)", page+1, pageSize)
	if hasNext {
		line += fmt.Sprintf(", next: --page %d", page+2)
	}
	fmt.Fprintln(w, line)
}

// FormatUser formats the signed-in identity for whoami.
func FormatUser(w io.Writer, u service.User, now time.Time) {
	fmt.Fprintf(w, "user:    %s\n", orNone(u.Username))
	fmt.Fprintf(w, "email:   %s\n", orNone(u.Email))
	if len(u.Roles) > 0 {
		fmt.Fprintf(w, "roles:   %s\n", strings.Join(u.Roles, ", "))
	}
	if !u.ExpiresAt.IsZero() {
		left := u.ExpiresAt.Sub(now).Round(time.Second)
		if left < 0 {
			left = 0
		}
		fmt.Fprintf(w, "expires: %s (in %s)\n", u.ExpiresAt.Format(time.RFC3339), left)
	}
}

// normalizeText normalizes a task field for display.
// - Empty or whitespace-only values become "(untitled)"
// - Newlines are replaced with spaces
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")

	if strings.TrimSpace(s) == "" {
		return "(untitled)"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
