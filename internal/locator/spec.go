// internal/locator/spec.go
package locator

import (
	"fmt"

	"github.com/xkilldash9x/uiharness/internal/driver"
)

// Spec is the ordered candidate list for one logical UI target. Earlier
// candidates are preferred; a later one is only tried when every earlier one
// yields no usable element.
type Spec struct {
	Name       string
	Candidates []Candidate
}

// NewSpec builds a Spec for the target called name.
func NewSpec(name string, candidates ...Candidate) Spec {
	return Spec{Name: name, Candidates: candidates}
}

// Strategies describes every candidate in priority order.
func (s Spec) Strategies() []string {
	out := make([]string, len(s.Candidates))
	for i, c := range s.Candidates {
		out[i] = c.String()
	}
	return out
}

// Resolved is a live element plus the candidate that found it. It is only
// valid for the document it was resolved in.
type Resolved struct {
	Element driver.Element
	// Index is the 1-based position of Candidate in the spec.
	Index     int
	Candidate Candidate
	Target    string
}

func (r *Resolved) String() string {
	return fmt.Sprintf("%s via #%d %s", r.Target, r.Index, r.Candidate)
}
