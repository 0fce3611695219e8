package log

// Attribute keys shared by every service
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldReferer    = "referer"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldErrorType  = "error_type"
	FieldOperation  = "operation"
	FieldTxnID      = "txn_id"
	FieldTxnCount   = "txn_count"
	FieldTagOp      = "tag_op"
	FieldTags       = "tags"
	FieldSource     = "source"
	FieldEventID    = "event_id"
	FieldSession    = "session"
	FieldTool       = "tool"
	FieldRows       = "rows"
)

// Component names stamped on every record
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentAPI      = "api"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentSheets   = "sheets"
	ComponentSessions = "sessions"
	ComponentTrace    = "trace"
	ComponentSearch   = "search"
	ComponentMCP      = "mcp"
	ComponentCLI      = "cli"
	ComponentTemplate = "template"
)

// Operation names for FieldOperation
const (
	OpCreate  = "create"
	OpRead    = "read"
	OpTag     = "tag"
	OpRender  = "render"
	OpPublish = "publish"
)

// Values for FieldErrorType
const (
	ErrorTypeDatabase = "database_error"
	ErrorTypeNetwork  = "network_error"
)

// LogFields accumulates attributes and is passed to slog via ToSlice.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent names the subsystem a record is about when it differs
// from the logger's own component.
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error message, skipping nil errors
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithErrorType(errorType string) LogFields {
	f[FieldErrorType] = errorType
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithTagEdit adds the fields of a batch tag edit
func (f LogFields) WithTagEdit(op string, txnCount int, tags []string) LogFields {
	f[FieldTagOp] = op
	f[FieldTxnCount] = txnCount
	f[FieldTags] = tags
	return f
}

// WithHTTPRequest skips empty user agent and referer.
func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	if referer != "" {
		f[FieldReferer] = referer
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
