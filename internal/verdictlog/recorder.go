package verdictlog

import (
	"context"

	"github.com/jmerrifield20/phishlens/internal/analysis"
)

// Recorder appends every completed assessment to a Log.
type Recorder struct {
	log Log
}

// NewRecorder returns an analysis.Recorder backed by l.
func NewRecorder(l Log) *Recorder {
	return &Recorder{log: l}
}

var _ analysis.Recorder = (*Recorder)(nil)

// RecordAssessment implements analysis.Recorder.
func (r *Recorder) RecordAssessment(ctx context.Context, a *analysis.Assessment) error {
	verdict := VerdictSafe
	if a.Result.IsPhishing {
		verdict = VerdictPhishing
	}
	_, err := r.log.Append(ctx, Record{
		AnalysisID: a.ID.String(),
		URL:        a.Result.Features.URL,
		Verdict:    verdict,
		RiskScore:  a.Result.RiskScore,
		Source:     string(a.Source),
		Payload:    a.Result,
	})
	return err
}
