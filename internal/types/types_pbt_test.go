package types

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Every accepted name normalizes to a canonical status, and normalizing a
// canonical status is the identity.
func TestNormalizeStatus_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	accepted := make([]interface{}, 0)
	for _, n := range AcceptedStatusNames() {
		accepted = append(accepted, n)
	}

	properties.Property("accepted names map into the canonical set", prop.ForAll(
		func(name string) bool {
			status, ok := NormalizeStatus(name)
			if !ok {
				return false
			}
			for _, canonical := range LeadStatuses() {
				if status == canonical {
					return true
				}
			}
			return false
		},
		gen.OneConstOf(accepted...),
	))

	properties.Property("normalization is idempotent", prop.ForAll(
		func(name string) bool {
			first, _ := NormalizeStatus(name)
			second, _ := NormalizeStatus(string(first))
			return first == second
		},
		gen.OneGenOf(gen.OneConstOf(accepted...), gen.AlphaString()),
	))

	properties.TestingRun(t)
}
