// Package audit is the static scope auditor. It checks that every reachable route takes a
// tenant scope and filters by it, that every unscoped executor call site is reviewed, and
// that every reporting view exposes a populated org_id column.
package audit

import (
	"fmt"
	"sort"

	"github.com/sellerdesk/backend/internal/telemetry"
)

// Violation is one finding. Kind is one of the telemetry auditor kinds.
type Violation struct {
	Kind    string
	Subject string
	Missing string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s: missing %s", v.Kind, v.Subject, v.Missing)
}

// Record counts every violation in telemetry. Safe with a nil sink.
func Record(sink *telemetry.Violations, vs []Violation) {
	for _, v := range vs {
		sink.Inc(v.Kind)
	}
}

func sortViolations(vs []Violation) {
	sort.SliceStable(vs, func(i, j int) bool {
		if vs[i].Subject != vs[j].Subject {
			return vs[i].Subject < vs[j].Subject
		}
		return vs[i].Missing < vs[j].Missing
	})
}
