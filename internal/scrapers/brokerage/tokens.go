package brokerage

import (
	"fmt"
	"maps"
)

// Tokens holds the hidden state tokens of a session. It is a value: Merge
// returns a new Tokens and never modifies the receiver, so a snapshot handed
// to a request cannot change under it.
type Tokens struct {
	values map[string]string
}

// Merge returns a copy of t with the fresh tokens added, overwriting any
// existing entry of the same name. Empty values are kept so that they
// replace stale ones, Snapshot is what drops them.
func (t Tokens) Merge(fresh map[string]string) Tokens {
	merged := make(map[string]string, len(t.values)+len(fresh))
	maps.Copy(merged, t.values)
	maps.Copy(merged, fresh)
	return Tokens{values: merged}
}

// Snapshot returns the tokens to send with the next request, entries with an
// empty value are left out.
func (t Tokens) Snapshot() map[string]string {
	out := make(map[string]string, len(t.values))
	for k, v := range t.values {
		if v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// Require fails with ErrMissingToken if any of the names has no non-empty value.
func (t Tokens) Require(names ...string) error {
	for _, name := range names {
		if name == "" {
			continue
		}
		if t.values[name] == "" {
			return fmt.Errorf("%w: %s", ErrMissingToken, name)
		}
	}
	return nil
}

// Len returns the number of tokens that would be sent.
func (t Tokens) Len() int {
	n := 0
	for _, v := range t.values {
		if v != "" {
			n++
		}
	}
	return n
}
