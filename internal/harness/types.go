package harness

// Result is the outcome of running one scenario.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool `json:"pass"`

	// Wire is the byte stream that was decoded.
	Wire []byte `json:"wire"`

	// RowCount is the number of rows after decode.
	RowCount int `json:"row_count"`

	// Bytes is the byte count reported to the progress sink.
	Bytes int `json:"bytes"`

	// ErrorKind classifies the decode error; empty on success.
	ErrorKind string `json:"error_kind,omitempty"`

	// DecodeErr is the raw decode error.
	DecodeErr error `json:"-"`

	// Values holds the decoded rows as plain Go values.
	Values [][]any `json:"values"`

	// Errors lists failed expectations.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError records a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
