package xmlnorm

import (
	"bytes"
	"encoding/xml"
	"strconv"

	"github.com/FairForge/gorest-e2e/internal/model"
)

// TimeLayout is the timestamp format the service writes into dateTime elements.
const TimeLayout = "2006-01-02T15:04:05.000-07:00"

// Record is any entity the service can return.
type Record interface {
	model.User | model.Post | model.Comment | model.Todo
}

type field struct {
	name  string
	typ   string
	value string
	null  bool
}

func textField(name, value string) field { return field{name: name, value: value} }

func intField(name string, v int) field {
	return field{name: name, typ: "integer", value: strconv.Itoa(v)}
}

func recordFields(v any) []field {
	switch r := v.(type) {
	case model.User:
		return []field{
			intField("id", r.ID),
			textField("name", r.Name),
			textField("email", r.Email),
			textField("gender", r.Gender),
			textField("status", r.Status),
		}
	case model.Post:
		return []field{
			intField("id", r.ID),
			intField("user-id", r.UserID),
			textField("title", r.Title),
			textField("body", r.Body),
		}
	case model.Comment:
		return []field{
			intField("id", r.ID),
			intField("post-id", r.PostID),
			textField("name", r.Name),
			textField("email", r.Email),
			textField("body", r.Body),
		}
	case model.Todo:
		due := field{name: "due-on", typ: "dateTime", null: r.DueOn == nil}
		if r.DueOn != nil {
			due.value = r.DueOn.Format(TimeLayout)
		}
		return []field{
			intField("id", r.ID),
			intField("user-id", r.UserID),
			textField("title", r.Title),
			due,
			textField("status", r.Status),
		}
	}
	return nil
}

type writer struct {
	buf bytes.Buffer
	enc *xml.Encoder
}

func newWriter() *writer {
	w := &writer{}
	w.buf.WriteString(xml.Header)
	w.enc = xml.NewEncoder(&w.buf)
	w.enc.Indent("", "  ")
	return w
}

func (w *writer) start(name string, attrs ...xml.Attr) error {
	return w.enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs})
}

func (w *writer) end(name string) error {
	return w.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: name}})
}

func (w *writer) leaf(f field) error {
	var attrs []xml.Attr
	if f.null {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "nil"}, Value: "true"})
	} else if f.typ != "" {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "type"}, Value: f.typ})
	}
	if err := w.start(f.name, attrs...); err != nil {
		return err
	}
	if !f.null {
		if err := w.enc.EncodeToken(xml.CharData(f.value)); err != nil {
			return err
		}
	}
	return w.end(f.name)
}

func (w *writer) element(name string, fields []field) error {
	if err := w.start(name); err != nil {
		return err
	}
	for _, f := range fields {
		if err := w.leaf(f); err != nil {
			return err
		}
	}
	return w.end(name)
}

func (w *writer) bytes() ([]byte, error) {
	if err := w.enc.Flush(); err != nil {
		return nil, err
	}
	return w.buf.Bytes(), nil
}

var arrayAttr = xml.Attr{Name: xml.Name{Local: "type"}, Value: "array"}

func (w *writer) list(items [][]field) error {
	if len(items) == 0 {
		if err := w.start(rootEmpty, arrayAttr); err != nil {
			return err
		}
		return w.end(rootEmpty)
	}
	if err := w.start(rootObjects, arrayAttr); err != nil {
		return err
	}
	for _, fields := range items {
		if err := w.element(rootObject, fields); err != nil {
			return err
		}
	}
	return w.end(rootObjects)
}

// EncodeRecord writes v in the single record envelope.
func EncodeRecord[T Record](v T) ([]byte, error) {
	w := newWriter()
	if err := w.element(rootHash, recordFields(v)); err != nil {
		return nil, err
	}
	return w.bytes()
}

// EncodeList writes vs in the list envelope, or the empty-collection marker
// when vs is empty.
func EncodeList[T Record](vs []T) ([]byte, error) {
	items := make([][]field, 0, len(vs))
	for _, v := range vs {
		items = append(items, recordFields(v))
	}
	w := newWriter()
	if err := w.list(items); err != nil {
		return nil, err
	}
	return w.bytes()
}

// EncodeMessage writes m in the envelope matching its kind.
func EncodeMessage(m model.Message) ([]byte, error) {
	w := newWriter()
	if m.Kind == model.MessageSimple {
		if err := w.element(rootHash, []field{textField("message", m.Text)}); err != nil {
			return nil, err
		}
		return w.bytes()
	}

	items := make([][]field, 0, len(m.Details))
	for _, d := range m.Details {
		items = append(items, []field{textField("field", d.Field), textField("message", d.Message)})
	}
	if err := w.list(items); err != nil {
		return nil, err
	}
	return w.bytes()
}
