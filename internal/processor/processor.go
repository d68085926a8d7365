package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"call-insights-go/internal/events"
	"call-insights-go/internal/logger"
	"call-insights-go/internal/store"
	"call-insights-go/internal/summarizer"
	"call-insights-go/internal/types"
)

// EmptyTranscriptWarning is shown when the submitted transcript is blank.
const EmptyTranscriptWarning = "⚠️ Please enter a transcript."

// ErrEmptyTranscript is the validation failure for blank input.
var ErrEmptyTranscript = errors.New("transcript is empty")

type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

type SentimentClassifier interface {
	Classify(text string) types.Sentiment
}

type EntityExtractor interface {
	Extract(transcript string) types.Entities
}

type Sink interface {
	Append(rec types.CallRecord) error
}

type Publisher interface {
	PublishAnalyzed(evt events.CallAnalyzed) error
}

// Processor runs the analysis pipeline for one transcript at a time per call.
type Processor struct {
	summarizer Summarizer
	sentiment  SentimentClassifier
	extractor  EntityExtractor
	sink       Sink
	publisher  Publisher
	log        *logger.Logger
	now        func() time.Time
}

// New wires the pipeline. publisher may be nil.
func New(s Summarizer, sc SentimentClassifier, ex EntityExtractor, sink Sink, pub Publisher, log *logger.Logger) *Processor {
	return &Processor{
		summarizer: s,
		sentiment:  sc,
		extractor:  ex,
		sink:       sink,
		publisher:  pub,
		log:        log.Component("processor"),
		now:        time.Now,
	}
}

// Analyze validates, summarizes, scores, extracts and stores one transcript.
//
// Blank input returns a Result carrying only a warning and ErrEmptyTranscript;
// nothing else runs. Summarizer failures abort before anything is stored.
// A storage failure still returns the computed fields, with SaveError set.
func (p *Processor) Analyze(ctx context.Context, transcript string) (types.Result, error) {
	start := p.now()
	log := p.log.WithField("req_id", RequestID(ctx)).WithField("transcript_len", len(transcript))

	if strings.TrimSpace(transcript) == "" {
		log.Warn("empty transcript submitted")
		return types.Result{Warning: EmptyTranscriptWarning}, ErrEmptyTranscript
	}

	summary, err := p.summarizer.Summarize(ctx, transcript)
	if err != nil {
		log.WithField("error", err.Error()).Error("summarization failed")
		return types.Result{
			Error:      userMessage(err),
			DurationMs: p.since(start),
		}, fmt.Errorf("summarize: %w", err)
	}

	rec := types.CallRecord{
		Transcript: transcript,
		Summary:    summary,
		Sentiment:  p.sentiment.Classify(transcript),
		Entities:   p.extractor.Extract(transcript),
	}
	res := types.ResultFrom(rec)

	if err := p.sink.Append(rec); err != nil {
		log.WithField("error", err.Error()).Error("record not saved")
		res.SaveError = userMessage(err)
		res.DurationMs = p.since(start)
		return res, fmt.Errorf("save record: %w", err)
	}

	if p.publisher != nil {
		evt := events.CallAnalyzed{Record: rec, AnalyzedAt: p.now().UTC(), RequestID: RequestID(ctx)}
		if err := p.publisher.PublishAnalyzed(evt); err != nil {
			log.WithField("error", err.Error()).Warn("failed to publish call analyzed event")
		}
	}

	res.DurationMs = p.since(start)
	log.WithField("sentiment", rec.Sentiment).
		WithField("duration_ms", res.DurationMs).
		Info("transcript analyzed")
	return res, nil
}

func (p *Processor) since(start time.Time) int64 {
	return p.now().Sub(start).Milliseconds()
}

// userMessage turns pipeline errors into text fit for the form.
func userMessage(err error) string {
	var te *summarizer.TransportError
	var me *summarizer.MalformedResponseError
	var se *store.StorageError
	switch {
	case errors.As(err, &te):
		if te.StatusCode != 0 {
			return fmt.Sprintf("The summarization service returned an error (HTTP %d). Please try again.", te.StatusCode)
		}
		return "The summarization service could not be reached. Please try again."
	case errors.As(err, &me):
		return "The summarization service returned an unexpected response. Please try again."
	case errors.As(err, &se):
		return "The analysis was computed but could not be saved."
	default:
		return "Analysis failed. Please try again."
	}
}

type ctxKey struct{}

// WithRequestID tags ctx so logs and events can be correlated with the HTTP request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
