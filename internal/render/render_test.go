package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/maruel/dundie/internal/core"
	"github.com/maruel/dundie/internal/models"
	"github.com/maruel/dundie/internal/storage/git"
)

func TestPeople(t *testing.T) {
	md := People([]core.PersonView{
		{Email: "joe@doe.com", Name: "Joe | Jr", Dept: "Sales", Role: "Salesman", Balance: models.P(590), Currency: "USD"},
	}).Markdown()
	want := "## Dunder Mifflin Associates\n\n" +
		"| Email | Name | Dept | Role | Balance | Currency | Last movement |\n" +
		"| --- | --- | --- | --- | --- | --- | --- |\n" +
		"| joe@doe.com | Joe \\| Jr | Sales | Salesman | 590 | USD | - |\n"
	if md != want {
		t.Errorf("got:\n%s\nwant:\n%s", md, want)
	}
}

func TestStatement(t *testing.T) {
	p := &models.Person{Email: "joe@doe.com"}
	now := time.Now()
	tbl := Statement(p.Email, []*models.Movement{
		{Person: p, Date: now, Actor: "system", Value: models.P(500)},
		{Person: p, Date: now, Actor: "jim", Value: models.P(-30)},
	})
	if len(tbl.Rows) != 2 || tbl.Rows[1][3] != "470" {
		t.Errorf("rows = %v", tbl.Rows)
	}
}

func TestEmpty(t *testing.T) {
	if md := History(nil).Markdown(); !strings.Contains(md, "Nothing to show") {
		t.Errorf("got %q", md)
	}
	if md := History([]*git.Commit{{Hash: "0123456789abcdef", Message: "m"}}).Markdown(); !strings.Contains(md, "| 0123456789 |") {
		t.Errorf("got %q", md)
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	tbl := Loaded([]core.LoadResult{{PersonView: core.PersonView{Email: "joe@doe.com", Balance: models.P(500)}, Created: true}})
	if err := Write(&buf, tbl.Markdown(), false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "joe@doe.com") {
		t.Errorf("output misses the email:\n%s", buf.String())
	}
}
