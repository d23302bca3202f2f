package openwire

// ErrCodeComponent is the error code of every runner failure.
const ErrCodeComponent = "COMPONENT_ERROR"

// ResponseError is one entry of a failed response's errors list.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Response is the fixed bridge envelope. Every field is always serialized:
// html is null in data mode, data is null in html mode, and state and errors
// are never null.
type Response struct {
	OK     bool            `json:"ok"`
	Mode   Mode            `json:"mode"`
	HTML   *string         `json:"html"`
	Data   map[string]any  `json:"data"`
	State  map[string]any  `json:"state"`
	Meta   map[string]any  `json:"meta"`
	Errors []ResponseError `json:"errors"`
}

// Success builds a successful response. Only the field matching mode is
// kept: html in ModeHTML, data in ModeData.
func Success(mode Mode, html string, data, state, meta map[string]any) *Response {
	r := &Response{
		OK:     true,
		Mode:   mode,
		State:  orEmpty(state),
		Meta:   orEmpty(meta),
		Errors: []ResponseError{},
	}
	if mode == ModeData {
		r.Data = orEmpty(data)
	} else {
		r.Mode = ModeHTML
		r.HTML = &html
	}
	return r
}

// Failure builds an error response: ok=false, mode html, html and data null,
// empty state. An empty errors list gets a generic entry so it is never empty.
func Failure(errs []ResponseError, meta map[string]any) *Response {
	if len(errs) == 0 {
		errs = []ResponseError{{Code: ErrCodeComponent, Message: "Unknown error"}}
	}
	return &Response{
		OK:     false,
		Mode:   ModeHTML,
		State:  map[string]any{},
		Meta:   orEmpty(meta),
		Errors: errs,
	}
}

// HTMLString returns the html field, or "" when it is null.
func (r *Response) HTMLString() string {
	if r.HTML == nil {
		return ""
	}
	return *r.HTML
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
