package storage

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/maruel/dundie/internal/errors"
	"github.com/maruel/dundie/internal/models"
)

const testDocument = `{
    "people": {
        "joe@doe.com": {
            "name": "Joe Doe",
            "dept": "Sales",
            "role": "Salesman",
            "currency": "USD"
        },
        "jim@doe.com": {
            "name": "Jim Doe",
            "dept": "Sales",
            "role": "Manager",
            "currency": "BRL"
        }
    },
    "balance": {
        "joe@doe.com": 590,
        "jim@doe.com": 100
    },
    "movement": {
        "joe@doe.com": [
            {
                "date": "2024-03-01T12:30:00.123456Z",
                "actor": "system",
                "value": 500
            },
            {
                "date": "2024-03-01T13:30:00.123456Z",
                "actor": "jim",
                "value": 90
            }
        ],
        "jim@doe.com": [
            {
                "date": "2024-03-01T12:30:00.123456Z",
                "actor": "system",
                "value": 100
            }
        ]
    },
    "user": {
        "joe@doe.com": {
            "password": "secret1"
        },
        "jim@doe.com": {
            "password": "secret2"
        }
    }
}`

func marshal(t *testing.T, s *Store) string {
	t.Helper()
	doc, err := Serialize(s)
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestSerialize(t *testing.T) {
	if got := marshal(t, newTestStore(t)); got != testDocument {
		t.Errorf("Serialize() mismatch\ngot:\n%s\nwant:\n%s", got, testDocument)
	}
}

func TestDeserialize(t *testing.T) {
	s, err := Deserialize([]byte(testDocument))
	if err != nil {
		t.Fatal(err)
	}
	if s.People.Len() != 2 || s.Balance.Len() != 2 || s.Movement.Len() != 3 || s.User.Len() != 2 {
		t.Fatalf("unexpected sizes: %d %d %d %d", s.People.Len(), s.Balance.Len(), s.Movement.Len(), s.User.Len())
	}
	joe, err := s.People.GetByKey("joe@doe.com")
	if err != nil {
		t.Fatal(err)
	}
	// Relations point at the same Person instance.
	b, err := s.Balance.GetByKey("joe@doe.com")
	if err != nil {
		t.Fatal(err)
	}
	if b.Person != joe || !b.Value.Equal(models.P(590)) {
		t.Errorf("balance = %+v", b)
	}
	u, err := s.User.GetByKey("jim@doe.com")
	if err != nil || u.Password != "secret2" {
		t.Errorf("user = %+v, %v", u, err)
	}
	m, err := s.Movement.Last()
	if err != nil {
		t.Fatal(err)
	}
	if m.Person.Email != "jim@doe.com" || !m.Date.Equal(testDate) {
		t.Errorf("last movement = %+v", m)
	}

	t.Run("RoundTrip", func(t *testing.T) {
		if got := marshal(t, s); got != testDocument {
			t.Errorf("round trip mismatch\ngot:\n%s", got)
		}
	})
}

func TestDeserializeKeyOrder(t *testing.T) {
	// Dependent tables written before people still resolve.
	raw := `{
		"user": {"joe@doe.com": {"password": "x"}},
		"movement": {"joe@doe.com": [{"date": "2022-01-01T10:00:00.000001", "actor": "", "value": 500}]},
		"balance": {"joe@doe.com": 500},
		"people": {"joe@doe.com": {"name": "Joe", "dept": "Sales", "role": "Salesman", "currency": "USD"}}
	}`
	s, err := Deserialize([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	m, err := s.Movement.First()
	if err != nil {
		t.Fatal(err)
	}
	if m.Actor != models.DefaultActor || m.Date.Year() != 2022 {
		t.Errorf("movement = %+v", m)
	}
	p, _ := s.People.First()
	if u, _ := s.User.First(); u.Person != p {
		t.Error("user must reference the deserialized person")
	}
}

func TestDeserializeErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{"people": `},
		{"not an object", `[1, 2]`},
		{"unknown table", `{"people": {}, "accounts": {}}`},
		{"dangling balance", `{"people": {}, "balance": {"joe@doe.com": 10}}`},
		{"dangling user", `{"people": {}, "user": {"joe@doe.com": {"password": "x"}}}`},
		{"bad email", `{"people": {"joe": {"name": "Joe"}}}`},
		{"bad date", `{"people": {"joe@doe.com": {}}, "movement": {"joe@doe.com": [{"date": "yesterday", "value": 1}]}}`},
		{"bad value", `{"people": {"joe@doe.com": {}}, "balance": {"joe@doe.com": "lots"}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Deserialize([]byte(tc.raw)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDeserializeTrimsKeys(t *testing.T) {
	raw := `{
		"people": {" joe@doe.com ": {"name": "Joe", "role": "Salesman"}},
		"balance": {"joe@doe.com ": 10},
		"movement": {" joe@doe.com": [{"date": "2024-03-01T12:30:00Z", "actor": "", "value": 10}]},
		"user": {"joe@doe.com": {"password": "x"}}
	}`
	s, err := Deserialize([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	p, err := s.People.GetByKey("joe@doe.com")
	if err != nil {
		t.Fatal(err)
	}
	if p.Currency != models.DefaultCurrency {
		t.Errorf("Currency = %q", p.Currency)
	}
	if b, err := s.Balance.GetByKey("joe@doe.com"); err != nil || b.Person != p {
		t.Errorf("balance = %+v, %v", b, err)
	}
	if m, err := s.Movement.GetByKey("joe@doe.com"); err != nil || m.Person != p || m.Actor != models.DefaultActor {
		t.Errorf("movement = %+v, %v", m, err)
	}
	if u, err := s.User.GetByKey("joe@doe.com"); err != nil || u.Person != p {
		t.Errorf("user = %+v, %v", u, err)
	}
}

func TestSerializeMissingPerson(t *testing.T) {
	s := EmptyStore()
	s.Balance.Append(&models.Balance{Value: models.P(1)})
	if _, err := Serialize(s); !errors.HasCode(err, errors.ErrSchemaIntegrity) {
		t.Errorf("error = %v", err)
	}
}

func TestRegistry(t *testing.T) {
	if got := TableNames(); !reflect.DeepEqual(got, []string{"people", "balance", "movement", "user"}) {
		t.Errorf("TableNames() = %v", got)
	}
	for _, name := range TableNames() {
		typ, err := TypeFor(name)
		if err != nil {
			t.Fatal(err)
		}
		back, err := TableNameFor(reflect.PointerTo(typ))
		if err != nil || back != name {
			t.Errorf("TableNameFor(%v) = %q, %v", typ, back, err)
		}
	}
	if _, err := TypeFor("accounts"); !errors.HasCode(err, errors.ErrNotFound) {
		t.Errorf("TypeFor(accounts) error = %v", err)
	}
	if _, err := TableNameFor(reflect.TypeFor[string]()); err == nil {
		t.Error("TableNameFor(string) must fail")
	}
}

func TestJSONSchema(t *testing.T) {
	s := JSONSchema()
	var names []string
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	if !reflect.DeepEqual(names, TableNames()) {
		t.Errorf("properties = %v", names)
	}
	if len(s.Required) != 4 {
		t.Errorf("required = %v", s.Required)
	}
}
