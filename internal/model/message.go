package model

import (
	"errors"
	"strings"
)

// MessageKind discriminates the two error envelope shapes.
type MessageKind int

const (
	// MessageSimple carries a bare string such as "Resource not found".
	MessageSimple MessageKind = iota
	// MessageValidation carries field/message pairs from a 422 response.
	MessageValidation
)

func (k MessageKind) String() string {
	switch k {
	case MessageSimple:
		return "simple"
	case MessageValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// ErrNoDetails is returned by First when a validation message holds no details.
var ErrNoDetails = errors.New("model: message has no validation details")

// Message is either a simple text message or a list of validation failures.
type Message struct {
	Kind    MessageKind
	Text    string
	Details []ErrorDetail
}

// SimpleMessage builds a MessageSimple.
func SimpleMessage(text string) Message {
	return Message{Kind: MessageSimple, Text: text}
}

// ValidationMessage builds a MessageValidation.
func ValidationMessage(details ...ErrorDetail) Message {
	return Message{Kind: MessageValidation, Details: details}
}

// First returns the first validation failure. The API reports one failure per
// request in practice, so most callers only look at this one.
func (m Message) First() (ErrorDetail, error) {
	if m.Kind != MessageValidation || len(m.Details) == 0 {
		return ErrorDetail{}, ErrNoDetails
	}
	return m.Details[0], nil
}

// Detail returns the failure reported for field, if any.
func (m Message) Detail(field string) (ErrorDetail, bool) {
	for _, d := range m.Details {
		if d.Field == field {
			return d, true
		}
	}
	return ErrorDetail{}, false
}

// String renders the message for logs and assertion failures.
func (m Message) String() string {
	if m.Kind == MessageSimple {
		return m.Text
	}
	parts := make([]string, 0, len(m.Details))
	for _, d := range m.Details {
		parts = append(parts, d.Field+" "+d.Message)
	}
	return strings.Join(parts, "; ")
}
