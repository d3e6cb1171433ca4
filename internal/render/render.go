// Package render formats dundie data as markdown tables for the terminal.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/maruel/dundie/internal/core"
	"github.com/maruel/dundie/internal/models"
	"github.com/maruel/dundie/internal/storage/git"
)

const dateFormat = "2006-01-02 15:04:05"

// Table is a markdown table.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Markdown returns the table as markdown.
func (t *Table) Markdown() string {
	var b strings.Builder
	if t.Title != "" {
		fmt.Fprintf(&b, "## %s\n\n", t.Title)
	}
	if len(t.Rows) == 0 {
		b.WriteString("_Nothing to show._\n")
		return b.String()
	}
	writeRow(&b, t.Headers)
	sep := make([]string, len(t.Headers))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(&b, sep)
	for _, r := range t.Rows {
		writeRow(&b, r)
	}
	return b.String()
}

func writeRow(b *strings.Builder, cells []string) {
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" ")
		b.WriteString(strings.ReplaceAll(c, "|", `\|`))
		b.WriteString(" |")
	}
	b.WriteString("\n")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(dateFormat)
}

// People returns the balance table of people.
func People(people []core.PersonView) *Table {
	t := &Table{
		Title:   "Dunder Mifflin Associates",
		Headers: []string{"Email", "Name", "Dept", "Role", "Balance", "Currency", "Last movement"},
	}
	for _, p := range people {
		t.Rows = append(t.Rows, []string{p.Email, p.Name, p.Dept, p.Role, p.Balance.String(), p.Currency, formatDate(p.LastMovement)})
	}
	return t
}

// Loaded returns the table of an import.
func Loaded(results []core.LoadResult) *Table {
	t := &Table{
		Title:   "Imported people",
		Headers: []string{"Email", "Name", "Dept", "Role", "Balance", "Created"},
	}
	for _, r := range results {
		t.Rows = append(t.Rows, []string{r.Email, r.Name, r.Dept, r.Role, r.Balance.String(), fmt.Sprint(r.Created)})
	}
	return t
}

// Statement returns the movements of one person and their total.
func Statement(address string, movements []*models.Movement) *Table {
	t := &Table{
		Title:   "Statement of " + address,
		Headers: []string{"Date", "Actor", "Value", "Balance"},
	}
	var total models.Points
	for _, m := range movements {
		total = total.Add(m.Value)
		t.Rows = append(t.Rows, []string{formatDate(m.Date), m.Actor, m.Value.String(), total.String()})
	}
	return t
}

// History returns the table of recorded database versions.
func History(commits []*git.Commit) *Table {
	t := &Table{
		Title:   "History",
		Headers: []string{"Commit", "Date", "Author", "Message"},
	}
	for _, c := range commits {
		hash := c.Hash
		if len(hash) > 10 {
			hash = hash[:10]
		}
		t.Rows = append(t.Rows, []string{hash, formatDate(c.Date), c.Author, c.Message})
	}
	return t
}

// Write renders markdown to w. Without color the markdown is styled for a
// plain terminal.
func Write(w io.Writer, markdown string, color bool) error {
	style := glamour.WithStandardStyle("notty")
	if color {
		style = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(0))
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return fmt.Errorf("failed to render: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
