package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"taskman/internal/service"
)

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		if m.loggedOut {
			return "Logged out.\n"
		}
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.renderFilters())
	b.WriteString("\n\n")

	if m.mode == modeForm {
		b.WriteString(m.renderForm())
		b.WriteString("\n\n")
	}

	b.WriteString(m.renderList())
	b.WriteString("\n")
	b.WriteString(m.renderPagination())
	b.WriteString("\n")

	if line := m.renderStatus(); line != "" {
		b.WriteString("\n")
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.mode == modeForm {
		b.WriteString(m.help.View(m.form.keys))
	} else {
		b.WriteString(m.help.View(m.keys))
	}
	return b.String()
}

func (m Model) renderHeader() string {
	title := m.styles.Title.Render("taskman")
	user := m.user.Username
	if user == "" {
		user = "unknown user"
	}
	who := m.styles.Subtitle.Render("signed in as ") + m.styles.Value.Render(user)
	logout := m.styles.Muted.Render("  (L to log out)")
	return title + "  " + who + logout
}

func (m Model) renderFilters() string {
	q := m.snap.Query
	priority := "ALL"
	if q.Priority != "" {
		priority = string(q.Priority)
	}
	status := "ALL"
	if q.Status != "" {
		status = string(q.Status)
	}

	search := q.Search
	if m.mode == modeSearch {
		search = m.search.View()
	} else if search == "" {
		search = m.styles.Muted.Render("none")
	}

	parts := []string{
		m.styles.Label.Render("Priority ") + m.styles.Value.Render(priority),
		m.styles.Label.Render("Status ") + m.styles.Value.Render(status),
		m.styles.Label.Render("Search ") + search,
		m.styles.Label.Render("Page size ") + m.styles.Value.Render(fmt.Sprint(q.PageSize)),
	}
	return strings.Join(parts, "   ")
}

func (m Model) renderList() string {
	if len(m.snap.Tasks) == 0 {
		if m.snap.Loading {
			return m.styles.Muted.Render("Loading...")
		}
		return m.styles.Muted.Render("No tasks found.")
	}

	cards := make([]string, len(m.snap.Tasks))
	for i, t := range m.snap.Tasks {
		cards[i] = m.renderCard(t, i == m.cursor)
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

func (m Model) renderCard(t service.Task, active bool) string {
	style := m.styles.Card
	if active {
		style = m.styles.CardActive
	}
	if m.width > 4 {
		style = style.Width(m.width - 4)
	}

	title := t.Title
	if t.Status == service.StatusCompleted {
		title = lipgloss.NewStyle().Strikethrough(true).Render(title)
	}
	head := fmt.Sprintf("%s %s  %s %s",
		m.styles.Muted.Render(fmt.Sprintf("#%d", t.ID)),
		m.styles.Title.Render(title),
		m.styles.Badge.Render(string(t.Priority)),
		m.styles.Badge.Render(string(t.Status)),
	)
	body := head
	if t.Description != "" {
		body += "\n" + m.styles.Subtitle.Render(t.Description)
	}
	if m.mode == modeConfirmDelete && t.ID == m.pendingDelete {
		body += "\n" + m.styles.Error.Render("Delete this task? (y/n)")
	}
	return style.Render(body)
}

func (m Model) renderPagination() string {
	q := m.snap.Query
	prev := m.styles.Value.Render("‹ prev")
	if q.PageNumber == 0 {
		prev = m.styles.Disabled.Render("‹ prev")
	}
	next := m.styles.Value.Render("next ›")
	if !m.snap.HasNext {
		next = m.styles.Disabled.Render("next ›")
	}
	page := m.styles.Label.Render(fmt.Sprintf("page %d", q.PageNumber+1))
	if m.snap.Loading {
		page += m.styles.Muted.Render(" (loading)")
	}
	return prev + "  " + page + "  " + next
}

func (m Model) renderForm() string {
	f := m.form
	heading := "New task"
	if f.editing() {
		heading = fmt.Sprintf("Edit task #%d", f.id)
	}

	label := func(i int, name string) string {
		if f.focus == i {
			return m.styles.Highlighted.Render(name)
		}
		return m.styles.Label.Render(name)
	}
	choice := func(v string) string {
		return m.styles.Value.Render("‹ " + v + " ›")
	}

	lines := []string{
		m.styles.Title.Render(heading),
		label(fieldTitle, "Title") + " " + f.title.View(),
		label(fieldDescription, "Description") + " " + f.description.View(),
		label(fieldPriority, "Priority") + " " + choice(string(f.priority)),
		label(fieldStatus, "Status") + " " + choice(string(f.status)),
	}
	if f.err != "" {
		lines = append(lines, m.styles.Error.Render(f.err))
	}
	if m.busy {
		lines = append(lines, m.styles.Muted.Render("Saving..."))
	}
	return m.styles.Form.Render(strings.Join(lines, "\n"))
}

func (m Model) renderStatus() string {
	switch {
	case m.lastError != "":
		return m.styles.Error.Render("Error: ") + m.lastError
	case m.notice != "":
		return m.styles.Success.Render(m.notice)
	}
	return ""
}
