package telemetry

import (
	"fmt"
	"sync"
)

// Report is a single call made against a Recorder.
type Report struct {
	Kind   string
	Id     string
	Params []any
}

// Recorder is an API that keeps every report in memory, it is meant for
// asserting on telemetry in tests.
type Recorder struct {
	mu      sync.Mutex
	reports []Report
}

func (r *Recorder) add(kind, id string, params []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, Report{Kind: kind, Id: id, Params: params})
}

func (r *Recorder) ReportBroken(id string, params ...any)  { r.add("broken", id, params) }
func (r *Recorder) ReportWarning(id string, params ...any) { r.add("warning", id, params) }
func (r *Recorder) ReportDebug(msg string, params ...any)  { r.add("debug", msg, params) }
func (r *Recorder) ReportCount(id string, count int64) {
	r.add("count", id, []any{count})
}

// Reports returns a copy of everything recorded so far.
func (r *Recorder) Reports() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Report, len(r.reports))
	copy(out, r.reports)
	return out
}

// Count returns the number of reports of `kind` whose id equals `id`.
func (r *Recorder) Count(kind, id string) int {
	n := 0
	for _, rep := range r.Reports() {
		if rep.Kind == kind && rep.Id == id {
			n++
		}
	}
	return n
}

func (r *Recorder) String() string {
	return fmt.Sprint(r.Reports())
}
