package types

// Sentiment is the bucketed polarity label of a transcript.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNegative Sentiment = "Negative"
	SentimentNeutral  Sentiment = "Neutral"
)

// Entities are the optional fields pulled out of a transcript. Nil means absent.
type Entities struct {
	CustomerName *string `json:"customer_name"`
	OrderID      *string `json:"order_id"`
	Product      *string `json:"product"`
}

// CallRecord is one persisted analysis. Records are append-only.
type CallRecord struct {
	Transcript string    `json:"transcript"`
	Summary    string    `json:"summary"`
	Sentiment  Sentiment `json:"sentiment"`
	Entities
}

// Columns is the header row of the record store, in storage order.
var Columns = []string{"Transcript", "Summary", "Sentiment", "Customer Name", "Order ID", "Product"}

// Row flattens the record into storage order; absent values become "".
func (r CallRecord) Row() []string {
	return []string{
		r.Transcript,
		r.Summary,
		string(r.Sentiment),
		Deref(r.CustomerName),
		Deref(r.OrderID),
		Deref(r.Product),
	}
}

// Result is what the UI and API render: the six fields plus any notices.
type Result struct {
	Transcript   string `json:"transcript"`
	Summary      string `json:"summary"`
	Sentiment    string `json:"sentiment"`
	CustomerName string `json:"customer_name"`
	OrderID      string `json:"order_id"`
	Product      string `json:"product"`

	Warning    string `json:"warning,omitempty"`
	Error      string `json:"error,omitempty"`
	SaveError  string `json:"save_error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// ResultFrom copies a record into display form.
func ResultFrom(r CallRecord) Result {
	return Result{
		Transcript:   r.Transcript,
		Summary:      r.Summary,
		Sentiment:    string(r.Sentiment),
		CustomerName: Deref(r.CustomerName),
		OrderID:      Deref(r.OrderID),
		Product:      Deref(r.Product),
	}
}

func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Ptr returns a pointer to s, or nil when s is empty.
func Ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
