package schema

const (
	// ProcessingErrorAnswer is shown to users when a request failed outright.
	ProcessingErrorAnswer = "Sorry, an error occurred while processing your request. Please try again."
)

// Response is the merged answer returned to callers.
type Response struct {
	Answer      string      `json:"answer"`
	FileIDs     []string    `json:"fileIds"`
	References  []Reference `json:"references"`
	ChartConfig *ChartSpec  `json:"chartConfig"`
	Error       *string     `json:"error"`
	// Degraded is set when some selected capabilities failed and were left out.
	Degraded bool `json:"degraded,omitempty"`
}

// NewResponse returns a response with empty, non-nil citation lists.
func NewResponse(answer string) Response {
	return Response{Answer: answer, FileIDs: []string{}, References: []Reference{}}
}

// ErrorResponse is the caller-side rendering of a failed request.
func ErrorResponse(err error) Response {
	r := NewResponse(ProcessingErrorAnswer)
	if err != nil {
		msg := err.Error()
		r.Error = &msg
	}
	return r
}
