package errors

// ErrorCode identifies an application error class.
type ErrorCode int

const (
	ErrorCode_HTTP_OK ErrorCode = 0

	ErrorCode_INTERNAL         ErrorCode = 1000
	ErrorCode_INVALID_ARGUMENT ErrorCode = 1001
	ErrorCode_NOT_FOUND        ErrorCode = 1002

	// Transport / input errors: logged and recovered locally.
	ErrorCode_INVALID_PAYLOAD       ErrorCode = 2000
	ErrorCode_WEBHOOK_UNAUTHORIZED  ErrorCode = 2001
	ErrorCode_UNKNOWN_LIFECYCLE     ErrorCode = 2002
	ErrorCode_SESSION_NOT_FOUND     ErrorCode = 2003
	ErrorCode_MALFORMED_VIEWER_MSG  ErrorCode = 2004

	// Pipeline errors: recovered via fallback values.
	ErrorCode_PIPELINE_NO_OUTPUT    ErrorCode = 3000
	ErrorCode_PIPELINE_PARSE_FAILED ErrorCode = 3001
	ErrorCode_PIPELINE_FAILED       ErrorCode = 3002

	// Resource errors: logged and dropped.
	ErrorCode_FRAME_ENCODE_FAILED ErrorCode = 4000
	ErrorCode_FRAME_STORE_FAILED  ErrorCode = 4001
	ErrorCode_TEARDOWN_FAILED     ErrorCode = 4002
	ErrorCode_STREAM_JOIN_FAILED  ErrorCode = 4003
)

var codeNames = map[ErrorCode]string{
	ErrorCode_HTTP_OK:               "OK",
	ErrorCode_INTERNAL:              "INTERNAL",
	ErrorCode_INVALID_ARGUMENT:      "INVALID_ARGUMENT",
	ErrorCode_NOT_FOUND:             "NOT_FOUND",
	ErrorCode_INVALID_PAYLOAD:       "INVALID_PAYLOAD",
	ErrorCode_WEBHOOK_UNAUTHORIZED:  "WEBHOOK_UNAUTHORIZED",
	ErrorCode_UNKNOWN_LIFECYCLE:     "UNKNOWN_LIFECYCLE",
	ErrorCode_SESSION_NOT_FOUND:     "SESSION_NOT_FOUND",
	ErrorCode_MALFORMED_VIEWER_MSG:  "MALFORMED_VIEWER_MSG",
	ErrorCode_PIPELINE_NO_OUTPUT:    "PIPELINE_NO_OUTPUT",
	ErrorCode_PIPELINE_PARSE_FAILED: "PIPELINE_PARSE_FAILED",
	ErrorCode_PIPELINE_FAILED:       "PIPELINE_FAILED",
	ErrorCode_FRAME_ENCODE_FAILED:   "FRAME_ENCODE_FAILED",
	ErrorCode_FRAME_STORE_FAILED:    "FRAME_STORE_FAILED",
	ErrorCode_TEARDOWN_FAILED:       "TEARDOWN_FAILED",
	ErrorCode_STREAM_JOIN_FAILED:    "STREAM_JOIN_FAILED",
}

// String returns the symbolic name for the code.
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}
