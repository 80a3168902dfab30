package result

// Category tells the caller how a search settled.
type Category string

// Search outcome categories.
const (
	CategoryNone       Category = ""
	CategoryValidation Category = "validation"
	// CategoryInFlight means the call was dropped because another search is still running.
	CategoryInFlight  Category = "in_flight"
	CategoryCancelled Category = "cancelled"
	CategoryTimedOut  Category = "timed_out"
	CategoryTransport Category = "transport_failed"
	CategoryBackend   Category = "backend_rejected"
)

// IsSoft reports whether the category should be shown as a warning, not an error.
// Soft failures must not be retried automatically.
func (c Category) IsSoft() bool {
	return c == CategoryCancelled || c == CategoryTimedOut || c == CategoryInFlight
}

// Attachment references a file attached to a document.
type Attachment struct {
	ID       int64  `json:"id"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Item is a single document hit.
type Item struct {
	ID          int64        `json:"id"`
	Subject     string       `json:"subject"`
	Vendor      string       `json:"vendor,omitempty"`
	DocType     string       `json:"doc_type,omitempty"`
	Date        string       `json:"date,omitempty"`
	Score       float64      `json:"score,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Intent is the structured interpretation of the raw query text.
type Intent struct {
	Keywords []string       `json:"keywords,omitempty"`
	Vendor   string         `json:"vendor,omitempty"`
	DocType  string         `json:"doc_type,omitempty"`
	DateFrom string         `json:"date_from,omitempty"`
	DateTo   string         `json:"date_to,omitempty"`
	Raw      map[string]any `json:"raw,omitempty"`
}

// IsEmpty reports whether no filters were derived.
func (i Intent) IsEmpty() bool {
	return len(i.Keywords) == 0 && i.Vendor == "" && i.DocType == "" &&
		i.DateFrom == "" && i.DateTo == "" && len(i.Raw) == 0
}

// Result is the outcome of one search call.
type Result struct {
	Success   bool     `json:"success"`
	Query     string   `json:"query"`
	Offset    int      `json:"offset"`
	Intent    Intent   `json:"parsed_intent"`
	Items     []Item   `json:"results"`
	Total     int      `json:"total"`
	Source    string   `json:"source,omitempty"`
	FromCache bool     `json:"from_cache,omitempty"`
	Category  Category `json:"category,omitempty"`
	Message   string   `json:"error,omitempty"`
}

// Failure builds an unsuccessful result.
func Failure(queryText string, offset int, c Category, message string) Result {
	return Result{Query: queryText, Offset: offset, Category: c, Message: message}
}

// HasMore reports whether a load-more would return further items.
func (r *Result) HasMore() bool {
	return r.Success && r.Offset+len(r.Items) < r.Total
}
