package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/stakerank/stakerank/internal/types"
)

// Section names used across the CLI and the HTTP API.
const (
	SectionActive  = "active"
	SectionWaiting = "waiting"
)

// Entry is one ranked validator.
type Entry struct {
	Validator types.Account
	ValidatorAggregate
}

// Section is a ranked list of validators. It marshals to a JSON object
// keyed by validator address whose key order is the ranking.
type Section []Entry

// Report is the ranked output of one generation pass.
type Report struct {
	Active      Section   `json:"active"`
	Waiting     Section   `json:"waiting"`
	GeneratedAt time.Time `json:"generatedAt"`
	Stats       Stats     `json:"stats"`
}

// Stats summarises the inputs of a report.
type Stats struct {
	Validators           int `json:"validators" yaml:"validators"`
	ActiveSession        int `json:"activeSession" yaml:"activeSession"`
	Nominators           int `json:"nominators" yaml:"nominators"`
	Edges                int `json:"edges" yaml:"edges"`
	IndexedBalances      int `json:"indexedBalances" yaml:"indexedBalances"`
	BalanceMisses        int `json:"balanceMisses" yaml:"balanceMisses"`
	ResolvedIdentities   int `json:"resolvedIdentities" yaml:"resolvedIdentities"`
	UnresolvedIdentities int `json:"unresolvedIdentities" yaml:"unresolvedIdentities"`
}

// Rank orders both sections by total bonded balance, highest first. Equal
// totals are ordered by ascending validator address.
func Rank(agg Aggregates) Report {
	return Report{
		Active:  rankSection(agg.Active),
		Waiting: rankSection(agg.Waiting),
	}
}

func rankSection(m map[types.Account]*ValidatorAggregate) Section {
	out := make(Section, 0, len(m))
	for acc, v := range m {
		out = append(out, Entry{Validator: acc, ValidatorAggregate: *v})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].TotalBondedBalance, out[j].TotalBondedBalance
		if !a.Equal(b) {
			return a.GT(b)
		}
		return out[i].Validator < out[j].Validator
	})
	return out
}

// Section returns the named section, or false for an unknown name.
func (r *Report) Section(name string) (Section, bool) {
	switch name {
	case SectionActive:
		return r.Active, true
	case SectionWaiting:
		return r.Waiting, true
	default:
		return nil, false
	}
}

// Find returns the entry for validator and the section holding it.
func (r *Report) Find(validator types.Account) (Entry, string, bool) {
	for _, name := range []string{SectionActive, SectionWaiting} {
		sec, _ := r.Section(name)
		for _, e := range sec {
			if e.Validator == validator {
				return e, name, true
			}
		}
	}
	return Entry{}, "", false
}

// Limit returns at most n leading entries. n <= 0 means no limit.
func (s Section) Limit(n int) Section {
	if n <= 0 || n >= len(s) {
		return s
	}
	return s[:n]
}

// MarshalJSON writes the section as an ordered object.
func (s Section) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(e.Validator))
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.ValidatorAggregate)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an ordered object written by MarshalJSON, keeping
// the key order.
func (s *Section) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*s = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("section: expected object, got %v", tok)
	}

	out := Section{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("section: expected key, got %v", tok)
		}
		var v ValidatorAggregate
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("section: validator %s: %w", key, err)
		}
		out = append(out, Entry{Validator: types.Account(key), ValidatorAggregate: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*s = out
	return nil
}
