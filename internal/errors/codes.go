package errors

// Error codes for the analyzer. The codes appear in reports and
// diagnostics so that a fault can be identified independently of its
// message text.
//
// Code ranges:
// A0001-A0099: abstract runtime faults (reachable program errors)
// P0001-P0099: reader/compiler errors
// X0001-X0099: analyzer-internal faults (invariant violations)

const (
	// A0001: variable used without a binding
	ErrorUnboundVariable = "A0001"

	// A0002: application of a value that is not a procedure
	ErrorNotAProcedure = "A0002"

	// A0003: procedure applied to the wrong number of arguments
	ErrorArityMismatch = "A0003"

	// A0004: primitive applied to an operand of the wrong type
	ErrorTypeMismatch = "A0004"

	// A0005: car/cdr of a value that is not a pair
	ErrorNotAPair = "A0005"

	// A0006: division by zero
	ErrorDivisionByZero = "A0006"

	// A0007: letrec variable read before its binding is initialized
	ErrorUninitializedVariable = "A0007"

	// P0001: syntax error from the reader
	ErrorParse = "P0001"

	// P0002: malformed special form
	ErrorMalformedForm = "P0002"

	// X0001: exploration aborted by an internal invariant violation
	ErrorInternal = "X0001"
)

// Describe returns a human-readable description of an error code.
func Describe(code string) string {
	switch code {
	case ErrorUnboundVariable:
		return "Variable is used but not bound in the current scope"
	case ErrorNotAProcedure:
		return "Operator position holds a value that cannot be applied"
	case ErrorArityMismatch:
		return "Procedure applied to the wrong number of arguments"
	case ErrorTypeMismatch:
		return "Primitive applied to an operand of the wrong type"
	case ErrorNotAPair:
		return "car/cdr applied to a value that is not a pair"
	case ErrorDivisionByZero:
		return "Division by a value that may be zero"
	case ErrorUninitializedVariable:
		return "letrec variable read before it is initialized"
	case ErrorParse:
		return "Syntax error"
	case ErrorMalformedForm:
		return "Malformed special form"
	case ErrorInternal:
		return "Internal analyzer fault"
	default:
		return "Unknown error code"
	}
}

// Category returns the group an error code belongs to.
func Category(code string) string {
	switch {
	case code >= "A0001" && code < "A0100":
		return "Abstract Runtime"
	case code >= "P0001" && code < "P0100":
		return "Reader"
	case code >= "X0001" && code < "X0100":
		return "Internal"
	default:
		return "Unknown"
	}
}
