package errors

import "errors"

// Error codes shared by the domain and transport layers.
const (
	CodeInvalidInput    = "invalid_input"
	CodeInvalidTable    = "invalid_table"
	CodeCatalog         = "catalog_error"
	CodeSource          = "source_error"
	CodeEvaluation      = "evaluation_error"
	CodeNoRelevantItems = "no_relevant_items"
)

// AppError tags a failure with one of the codes above so the transport layer
// can map it without string matching.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	switch {
	case e.Err == nil:
		return e.Message
	case e.Message == "":
		return e.Err.Error()
	default:
		return e.Message + ": " + e.Err.Error()
	}
}

func (e *AppError) Unwrap() error { return e.Err }

// Wrap tags err (which may be nil) with code and message.
func Wrap(code, message string, err error) error {
	return &AppError{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the outermost AppError, or "" when err carries none.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsCode reports whether the outermost AppError in err's chain has code.
func IsCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}
