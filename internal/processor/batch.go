package processor

import (
	"context"

	"call-insights-go/internal/types"
)

// BatchItem is one row of a batch run.
type BatchItem struct {
	Ref    string       `json:"ref"`
	Result types.Result `json:"result"`
}

// AnalyzeBatch runs Analyze over each transcript in order. A failed row does not stop
// the batch; its error is already rendered into the row's Result.
func (p *Processor) AnalyzeBatch(ctx context.Context, refs, transcripts []string) []BatchItem {
	out := make([]BatchItem, 0, len(transcripts))
	for i, tr := range transcripts {
		if ctx.Err() != nil {
			break
		}
		ref := ""
		if i < len(refs) {
			ref = refs[i]
		}
		res, err := p.Analyze(ctx, tr)
		if err != nil {
			p.log.WithField("ref", ref).WithField("error", err.Error()).Warn("batch row failed")
		}
		out = append(out, BatchItem{Ref: ref, Result: res})
	}
	return out
}
