package storage

import (
	"testing"
	"time"

	"github.com/maruel/dundie/internal/models"
)

var testDate = time.Date(2024, 3, 1, 12, 30, 0, 123456000, time.UTC)

// newTestStore returns a store with joe (two movements) and jim (one).
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := EmptyStore()
	joe, err := models.NewPerson("joe@doe.com", "Joe Doe", "Sales", "Salesman", models.DefaultCurrency)
	if err != nil {
		t.Fatal(err)
	}
	jim, err := models.NewPerson("jim@doe.com", "Jim Doe", "Sales", models.RoleManager, "BRL")
	if err != nil {
		t.Fatal(err)
	}
	s.People.Append(joe)
	s.People.Append(jim)
	s.Movement.Append(&models.Movement{Person: joe, Date: testDate, Actor: models.DefaultActor, Value: models.P(500)})
	s.Movement.Append(&models.Movement{Person: jim, Date: testDate, Actor: models.DefaultActor, Value: models.P(100)})
	s.Movement.Append(&models.Movement{Person: joe, Date: testDate.Add(time.Hour), Actor: "jim", Value: models.P(90)})
	s.Balance.Append(&models.Balance{Person: joe, Value: models.P(590)})
	s.Balance.Append(&models.Balance{Person: jim, Value: models.P(100)})
	s.User.Append(&models.User{Person: joe, Password: "secret1"})
	s.User.Append(&models.User{Person: jim, Password: "secret2"})
	return s
}
