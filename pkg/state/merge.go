package state

import (
	"fmt"

	teller "github.com/roboricindustries/tellerlink/pkg/schemas/teller/v1"
)

// MergeProducts assembles a comparison list from the customer's own product
// and the recommended/compared ones. Entries are deduplicated by id first;
// distinct entries sharing a display name get a parenthesized counter so a
// name collision never overwrites either entry.
func MergeProducts(lists ...[]teller.Product) []teller.Product {
	var out []teller.Product
	seen := make(map[string]bool)
	nameCount := make(map[string]int)

	for _, list := range lists {
		for _, p := range list {
			if p.ID != "" && seen[p.ID] {
				continue
			}
			if p.ID != "" {
				seen[p.ID] = true
			}
			if n := nameCount[p.Name]; n > 0 {
				base := p.Name
				p.Name = fmt.Sprintf("%s (%d)", base, n)
				nameCount[base] = n + 1
			} else {
				nameCount[p.Name] = 1
			}
			out = append(out, p)
		}
	}
	return out
}
