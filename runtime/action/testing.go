package action

// RecordingContext is a Context fake for tests and dry runs: message lookup
// echoes the requested code, redirects are recorded instead of performed.
type RecordingContext struct {
	Params Params
	Flash  Flash

	Lookups   []map[string]any
	Redirects []map[string]any

	// RedirectErr, when set, is returned by every RedirectTo call
	RedirectErr error
}

// NewRecordingContext creates a recording context over the given parameters
func NewRecordingContext(params Params) *RecordingContext {
	if params == nil {
		params = Params{}
	}
	return &RecordingContext{Params: params}
}

// LookupMessage records the call and returns the requested code unchanged
func (c *RecordingContext) LookupMessage(args map[string]any) any {
	c.Lookups = append(c.Lookups, args)
	return args["code"]
}

// RedirectTo records the call
func (c *RecordingContext) RedirectTo(args map[string]any) error {
	c.Redirects = append(c.Redirects, args)
	return c.RedirectErr
}

// FilterParams filters the request parameters with SubMap semantics
func (c *RecordingContext) FilterParams(names []string) Params {
	return c.Params.SubMap(names)
}

// RequestParams returns the ambient request parameters
func (c *RecordingContext) RequestParams() Params {
	return c.Params
}

// FlashScope returns the writable flash scope
func (c *RecordingContext) FlashScope() *Flash {
	return &c.Flash
}
