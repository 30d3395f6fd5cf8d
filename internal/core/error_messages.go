package core

// Error codes shown to users, grouped by category. Users quote the code when
// reporting a problem; the pattern says what triggered it.
//
//	DB001  duplicate key            DB005  connection reset
//	DB002  unique constraint        DB006  timeout
//	DB003  foreign key              DB007  deadlock
//	DB004  connection refused       DB008  catalog store not configured
//
//	VAL001 missing title            VAL003 unknown field in mapping
//	VAL002 invalid import options   VAL004 request validation failed
//
//	FILE001 file too large          FILE003 empty file
//	FILE002 no file provided        FILE004 invalid mapping JSON
//
//	IMP001 too many imports         IMP003 request timed out
//	IMP002 request cancelled
//
//	RATE001 rate limited
//	ERR000  anything else; check the logs for the technical error

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns are matched case-insensitively with strings.Contains; the
// first match wins, so specific patterns precede general ones.
var errorPatterns = []errorPattern{
	// Catalog constraints
	{"duplicate key", UserMessage{
		Message: "A book with this ISBN appears more than once in the batch",
		Action:  "Remove duplicate ISBNs from your CSV or import with skip",
		Code:    "DB001",
	}},
	{"unique constraint", UserMessage{
		Message: "This value must be unique but already exists",
		Action:  "Check for duplicate entries in your CSV",
		Code:    "DB002",
	}},
	{"violates unique", UserMessage{
		Message: "A duplicate value was found",
		Action:  "Review your data for duplicate ISBNs",
		Code:    "DB002",
	}},
	{"foreign key", UserMessage{
		Message: "The shelf or tier for this book no longer exists",
		Action:  "Run the import again to recreate it",
		Code:    "DB003",
	}},

	// Catalog connectivity
	{"connection refused", UserMessage{
		Message: "Unable to connect to the catalog",
		Action:  "Please try again in a few moments",
		Code:    "DB004",
	}},
	{"connection reset", UserMessage{
		Message: "Catalog connection was interrupted",
		Action:  "Please try again",
		Code:    "DB005",
	}},
	{"timeout", UserMessage{
		Message: "Operation timed out",
		Action:  "Try importing a smaller file or try again later",
		Code:    "DB006",
	}},
	{"deadlock", UserMessage{
		Message: "The catalog was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB007",
	}},
	{"database is locked", UserMessage{
		Message: "The catalog was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB007",
	}},
	{"catalog store is not configured", UserMessage{
		Message: "The catalog store is not configured",
		Action:  "Set DATABASE_URL and restart the service",
		Code:    "DB008",
	}},

	// Validation
	{"missing a title", UserMessage{
		Message: "A row in the CSV has no title",
		Action:  "Map a column to title and fill it for every row",
		Code:    "VAL001",
	}},
	{"invalid import options", UserMessage{
		Message: "Import options are out of range",
		Action:  "Use a batch size between 1 and 500 and skip or update for duplicates",
		Code:    "VAL002",
	}},
	{"unknown field", UserMessage{
		Message: "The mapping names a field that does not exist",
		Action:  "Map columns to title, author, isbn, cover_url, shelf, level, tier or note",
		Code:    "VAL003",
	}},
	{"validation failed", UserMessage{
		Message: "The request is missing or has invalid values",
		Action:  "Check the highlighted fields and try again",
		Code:    "VAL004",
	}},

	// Files
	{"file too large", UserMessage{
		Message: "File exceeds the maximum size limit",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE001",
	}},
	{"no file provided", UserMessage{
		Message: "No file was selected",
		Action:  "Please select a CSV file to import",
		Code:    "FILE002",
	}},
	{"empty file", UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Please upload a CSV file with a header and data rows",
		Code:    "FILE003",
	}},
	{"invalid mapping", UserMessage{
		Message: "The column mapping could not be read",
		Action:  "Send the mapping as a JSON object of header to field",
		Code:    "FILE004",
	}},

	// Import runs
	{"too many imports", UserMessage{
		Message: "The system is busy processing other imports",
		Action:  "Please wait a moment and try again",
		Code:    "IMP001",
	}},
	{"context canceled", UserMessage{
		Message: "Import was cancelled",
		Action:  "Rows imported before the cancel were kept; download failed rows to retry",
		Code:    "IMP002",
	}},
	{"context deadline exceeded", UserMessage{
		Message: "Import timed out",
		Action:  "Try importing a smaller file",
		Code:    "IMP003",
	}},

	{"rate limit", UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. It returns
// the zero UserMessage for a nil error and ERR000 when nothing matches.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matched a specific pattern rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error, kept for logging, with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
