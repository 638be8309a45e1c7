package protocol

import (
	"errors"

	"github.com/zeusync/tickstate/internal/core/command"
	"github.com/zeusync/tickstate/internal/core/snapshot"
	"github.com/zeusync/tickstate/pkg/encoding"
)

var (
	// Connection errors

	ErrConnectionClosed = errors.New("connection is closed")
	ErrSendQueueFull    = errors.New("send queue is full")
	ErrMessageTooLarge  = errors.New("message too large")

	// Message errors

	ErrShortBuffer     = encoding.ErrShortBuffer
	ErrTrailingData    = errors.New("trailing data after message")
	ErrBaselineMissing = errors.New("baseline snapshot not held")
	ErrTooManyCommands = command.ErrTooManyCommands
	ErrInvalidEntity   = errors.New("entity id out of range")
	ErrSameSnapshot    = snapshot.ErrSameSnapshot
)

// ErrorCode classifies protocol failures for logging and metrics.
type ErrorCode int

const (
	ErrorCodeSuccess ErrorCode = 0

	// Connection error codes (1000-1999)

	ErrorCodeConnectionClosed ErrorCode = 1001
	ErrorCodeSendQueueFull    ErrorCode = 1002
	ErrorCodeMessageTooLarge  ErrorCode = 1003

	// Message error codes (3000-3999)

	ErrorCodeShortBuffer     ErrorCode = 3001
	ErrorCodeTrailingData    ErrorCode = 3002
	ErrorCodeBaselineMissing ErrorCode = 3003
	ErrorCodeTooManyCommands ErrorCode = 3004
	ErrorCodeInvalidEntity   ErrorCode = 3005
	ErrorCodeSameSnapshot    ErrorCode = 3006

	ErrorCodeUnknownError ErrorCode = 9999
)

var errorCodeMap = map[error]ErrorCode{
	ErrConnectionClosed: ErrorCodeConnectionClosed,
	ErrSendQueueFull:    ErrorCodeSendQueueFull,
	ErrMessageTooLarge:  ErrorCodeMessageTooLarge,
	ErrShortBuffer:      ErrorCodeShortBuffer,
	ErrTrailingData:     ErrorCodeTrailingData,
	ErrBaselineMissing:  ErrorCodeBaselineMissing,
	ErrTooManyCommands:  ErrorCodeTooManyCommands,
	ErrInvalidEntity:    ErrorCodeInvalidEntity,
	ErrSameSnapshot:     ErrorCodeSameSnapshot,
}

func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeSuccess:
		return "success"
	case ErrorCodeConnectionClosed:
		return "connection_closed"
	case ErrorCodeSendQueueFull:
		return "send_queue_full"
	case ErrorCodeMessageTooLarge:
		return "message_too_large"
	case ErrorCodeShortBuffer:
		return "short_buffer"
	case ErrorCodeTrailingData:
		return "trailing_data"
	case ErrorCodeBaselineMissing:
		return "baseline_missing"
	case ErrorCodeTooManyCommands:
		return "too_many_commands"
	case ErrorCodeInvalidEntity:
		return "invalid_entity"
	case ErrorCodeSameSnapshot:
		return "same_snapshot"
	default:
		return "unknown"
	}
}

// Error represents a protocol-specific error with additional context
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NewProtocolError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsFatal reports whether the peer sent something the matching encoder
// could never have produced. Callers usually drop such connections.
func (e *Error) IsFatal() bool {
	switch e.Code {
	case ErrorCodeTrailingData,
		ErrorCodeTooManyCommands,
		ErrorCodeInvalidEntity,
		ErrorCodeConnectionClosed:
		return true
	default:
		return false
	}
}

// GetErrorCode returns the error code for a given error
func GetErrorCode(err error) ErrorCode {
	if err == nil {
		return ErrorCodeSuccess
	}

	var protocolErr *Error
	if errors.As(err, &protocolErr) {
		return protocolErr.Code
	}

	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return ErrorCodeUnknownError
}

// WrapError wraps a standard error into a protocol Error
// IsFatal reports whether err carries a protocol error that IsFatal.
func IsFatal(err error) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.IsFatal()
}

func WrapError(err error, message string) *Error {
	return NewProtocolError(GetErrorCode(err), message, err)
}
