package model

import "time"

// NoticeLevel grades a user-facing notice.
type NoticeLevel string

// Notice levels.
const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a message surfaced to the tracker: confirmations, warnings and
// retryable failures.
type Notice struct {
	Level     NoticeLevel `json:"level"`
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Retryable bool        `json:"retryable,omitempty"`
	At        time.Time   `json:"at"`
}
