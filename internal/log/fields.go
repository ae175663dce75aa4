package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldRequestID    = "request_id"
	FieldClientIP     = "client_ip"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldQuery        = "query"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldUserAgent    = "user_agent"
	FieldSuccess      = "success"
	FieldError        = "error"
	FieldErrorKind    = "error_kind"
	FieldOperation    = "ledger_op"
	FieldUserID       = "user_id"
	FieldAccountID    = "account_id"
	FieldEntityID     = "entity_id"
	FieldAmount       = "amount"
	FieldBalanceAfter = "balance_after"
	FieldJournalID    = "journal_id"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentAuth      = "auth"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
)

// Ledger operation names
const (
	OpCreateExpense  = "create_expense"
	OpUpdateExpense  = "update_expense"
	OpDeleteExpense  = "delete_expense"
	OpCreateIncome   = "create_income"
	OpUpdateIncome   = "update_income"
	OpDeleteIncome   = "delete_income"
	OpTransfer       = "transfer"
	OpAllocateToGoal = "allocate_to_goal"
	OpRegisterUser   = "register_user"
	OpCreateAccount  = "create_account"
	OpCreateGoal     = "create_saving_goal"
	OpReconcile      = "reconcile"
	OpStartup        = "startup"
	OpShutdown       = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error message, and its kind when one is given.
func (f LogFields) WithError(err error, kind string) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	if kind != "" {
		f[FieldErrorKind] = kind
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithLedger adds the fields identifying a balance mutation. Empty values are skipped.
func (f LogFields) WithLedger(userID, accountID, amount, balanceAfter string) LogFields {
	for k, v := range map[string]string{
		FieldUserID:       userID,
		FieldAccountID:    accountID,
		FieldAmount:       amount,
		FieldBalanceAfter: balanceAfter,
	} {
		if v != "" {
			f[k] = v
		}
	}
	return f
}

func (f LogFields) WithEntity(id string) LogFields {
	f[FieldEntityID] = id
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if query != "" {
		f[FieldQuery] = query
	}
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
