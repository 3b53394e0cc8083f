package errors

import (
	"fmt"
	"net/http"
)

// AppError is the custom error type for the application.
type AppError struct {
	Raw      error
	HTTPCode int
	Code     ErrorCode
	Message  string
	Details  map[string]string
}

// Error implements the error interface.
func (e AppError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code.String(), e.Message, e.Raw)
	}
	return fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is / errors.As.
func (e AppError) Unwrap() error {
	return e.Raw
}

// WithDetail adds a detail to the error.
func (e AppError) WithDetail(key, value string) AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

func ErrInternal(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_INTERNAL,
		Message:  "Internal server error",
	}
}

func ErrInvalidPayload(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_PAYLOAD,
		Message:  "Invalid payload",
	}
}

func ErrWebhookUnauthorized(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusUnauthorized,
		Code:     ErrorCode_WEBHOOK_UNAUTHORIZED,
		Message:  "Webhook signature validation failed",
	}
}

// Pipeline errors feed the reducer's fallback path; they never reach a
// viewer except as an error flag on the evaluation payload.

func ErrPipelineNoOutput(pipeline string) AppError {
	return AppError{
		HTTPCode: http.StatusBadGateway,
		Code:     ErrorCode_PIPELINE_NO_OUTPUT,
		Message:  "Pipeline returned no output stream",
	}.WithDetail("pipeline", pipeline)
}

func ErrPipelineParseFailed(pipeline string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusBadGateway,
		Code:     ErrorCode_PIPELINE_PARSE_FAILED,
		Message:  "Pipeline output could not be parsed",
	}.WithDetail("pipeline", pipeline)
}

func ErrPipelineFailed(pipeline string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusBadGateway,
		Code:     ErrorCode_PIPELINE_FAILED,
		Message:  "Pipeline invocation failed",
	}.WithDetail("pipeline", pipeline)
}

func ErrFrameStoreFailed(streamID string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_FRAME_STORE_FAILED,
		Message:  "Failed to store frame sample",
	}.WithDetail("stream_id", streamID)
}

func ErrStreamJoinFailed(streamID string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusBadGateway,
		Code:     ErrorCode_STREAM_JOIN_FAILED,
		Message:  "Failed to join media stream",
	}.WithDetail("stream_id", streamID)
}

func ErrTeardownFailed(resource string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_TEARDOWN_FAILED,
		Message:  fmt.Sprintf("Teardown failed: %s", resource),
	}
}
