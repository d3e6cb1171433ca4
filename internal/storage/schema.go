package storage

import (
	"reflect"

	"github.com/invopop/jsonschema"
)

// JSONSchema describes the database file.
func JSONSchema() *jsonschema.Schema {
	// Inline properties (no $ref) so the schema reads top to bottom.
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	s := r.ReflectFromType(reflect.TypeFor[Document]())
	s.Title = "dundie database"
	s.Description = "Points ledger: people, derived balances, movements and users keyed by email."
	return s
}
