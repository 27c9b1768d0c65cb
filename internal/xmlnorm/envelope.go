package xmlnorm

import (
	"github.com/FairForge/gorest-e2e/internal/model"
)

// Root element names used by the service.
const (
	rootHash    = "hash"
	rootObjects = "objects"
	rootObject  = "object"
	rootEmpty   = "nil-classes"
)

// Envelope is the outer shape of a response document.
type Envelope int

const (
	EnvelopeUnknown Envelope = iota
	EnvelopeRecord
	EnvelopeMessage
	EnvelopeList
	EnvelopeEmpty
)

func (e Envelope) String() string {
	switch e {
	case EnvelopeRecord:
		return "record"
	case EnvelopeMessage:
		return "message"
	case EnvelopeList:
		return "list"
	case EnvelopeEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Classify reports which envelope the document uses. A hash holding only a
// message element is a message, any other hash is a record. An objects list is
// reported as EnvelopeList whether it holds records or validation failures.
func Classify(doc *Document) Envelope {
	if doc == nil || doc.Root == nil {
		return EnvelopeUnknown
	}
	switch doc.Root.Name {
	case rootHash:
		if _, ok := doc.Root.Child("message"); ok && len(doc.Root.Children) == 1 {
			return EnvelopeMessage
		}
		return EnvelopeRecord
	case rootObjects:
		return EnvelopeList
	case rootEmpty:
		return EnvelopeEmpty
	default:
		return EnvelopeUnknown
	}
}

// ExtractMessage decodes an error envelope. A hash with a message child yields
// a simple message. An objects list yields a validation message holding every
// object that has both a field and a message child, in document order. A list
// in which no object qualifies is a shape error.
func ExtractMessage(doc *Document) (model.Message, error) {
	root := doc.Root
	switch root.Name {
	case rootHash:
		msg, ok := root.Child("message")
		if !ok {
			return model.Message{}, shapeError(rootHash, "missing message element")
		}
		return model.SimpleMessage(msg.Text), nil

	case rootObjects:
		var details []model.ErrorDetail
		for _, obj := range root.All(rootObject) {
			field, okField := obj.Child("field")
			message, okMessage := obj.Child("message")
			if !okField || !okMessage || field.Text == "" || message.Text == "" {
				continue
			}
			details = append(details, model.ErrorDetail{Field: field.Text, Message: message.Text})
		}
		if len(details) == 0 {
			return model.Message{}, shapeError(rootObjects, "no object carries both field and message")
		}
		return model.ValidationMessage(details...), nil

	default:
		return model.Message{}, shapeError(root.Name, "root is not an error envelope")
	}
}

// DecodeMessage parses text and extracts its error envelope.
func DecodeMessage(text []byte) (model.Message, error) {
	return decode(text, ExtractMessage)
}
