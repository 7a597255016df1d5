package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is a coded application error carrying an optional cause and
// backend-supplied details.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Status  int       `json:"status,omitempty"`
	Cause   error     `json:"-"`
}

// ErrorCode classifies an Error.
type ErrorCode string

const (
	// ErrAuthentication means the backend rejected the supplied credentials.
	ErrAuthentication ErrorCode = "AUTHENTICATION_FAILED"
	// ErrAuthorizationExpired means a previously valid token was rejected.
	ErrAuthorizationExpired ErrorCode = "AUTHORIZATION_EXPIRED"
	// ErrStorage means local session persistence is unavailable.
	ErrStorage ErrorCode = "STORAGE_ERROR"
	// ErrNetwork means no response was received from the backend.
	ErrNetwork ErrorCode = "NETWORK_ERROR"

	ErrNotFound         ErrorCode = "NOT_FOUND"
	ErrValidation       ErrorCode = "VALIDATION_ERROR"
	ErrUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrForbidden        ErrorCode = "FORBIDDEN"
	ErrInternal         ErrorCode = "INTERNAL_ERROR"
	ErrConflict         ErrorCode = "CONFLICT"
	ErrSignInInProgress ErrorCode = "SIGN_IN_IN_PROGRESS"
)

// Error returns the message, followed by the cause when there is one.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	if targetError, ok := target.(*Error); ok {
		return e.Code == targetError.Code
	}
	return false
}

// New creates an Error with the given code.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps err into an Error with the given code. A nil err yields nil.
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details string) *Error {
	if e == nil {
		return nil
	}
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Status:  e.Status,
		Cause:   e.Cause,
	}
}

// WithStatus returns a copy of e remembering the HTTP status it came from.
func (e *Error) WithStatus(status int) *Error {
	if e == nil {
		return nil
	}
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Status:  status,
		Cause:   e.Cause,
	}
}

// CodeOf extracts the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	return stderrors.Is(err, &Error{Code: code})
}

// HTTPStatus returns the HTTP status matching the error code.
func (e *Error) HTTPStatus() int {
	if e == nil {
		return http.StatusOK
	}
	if e.Status != 0 {
		return e.Status
	}

	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrValidation:
		return http.StatusBadRequest
	case ErrAuthentication, ErrAuthorizationExpired, ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrConflict, ErrSignInInProgress:
		return http.StatusConflict
	case ErrNetwork:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FromHTTPStatus builds an Error for a non-2xx backend response. backendMsg
// is the message extracted from the response body and may be empty.
func FromHTTPStatus(status int, backendMsg string) *Error {
	var code ErrorCode
	switch {
	case status == http.StatusUnauthorized:
		code = ErrAuthorizationExpired
	case status == http.StatusForbidden:
		code = ErrForbidden
	case status == http.StatusNotFound:
		code = ErrNotFound
	case status == http.StatusConflict:
		code = ErrConflict
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		code = ErrValidation
	default:
		code = ErrInternal
	}

	message := fmt.Sprintf("backend responded with status %d", status)
	return &Error{
		Code:    code,
		Message: message,
		Details: strings.TrimSpace(backendMsg),
		Status:  status,
	}
}

// GetUserMessage returns the message shown to the user. Authentication,
// validation and conflict errors prefer the backend-supplied details.
func (e *Error) GetUserMessage() string {
	if e == nil {
		return ""
	}

	switch e.Code {
	case ErrAuthentication:
		if e.Details != "" {
			return e.Details
		}
		return "Verifique suas credenciais."
	case ErrAuthorizationExpired:
		return "Sua sessão expirou. Entre novamente."
	case ErrStorage:
		return "Não foi possível acessar o armazenamento local da sessão."
	case ErrNetwork:
		return "Não foi possível conectar ao servidor. Verifique sua conexão."
	case ErrNotFound:
		if e.Details != "" {
			return e.Details
		}
		return "Registro não encontrado."
	case ErrValidation, ErrConflict:
		if e.Details != "" {
			return e.Details
		}
		if e.Code == ErrConflict {
			return "Conflito de dados."
		}
		return e.Message
	case ErrUnauthorized:
		return "Você não está conectado. Use 'nfse login'."
	case ErrForbidden:
		if e.Details != "" {
			return e.Details
		}
		return "Acesso negado."
	case ErrSignInInProgress:
		return "Já existe um login em andamento."
	case ErrInternal:
		if e.Details != "" {
			return e.Details
		}
		return "Erro interno. Tente novamente mais tarde."
	default:
		return "Ocorreu um erro."
	}
}
