package xmlnorm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/FairForge/gorest-e2e/internal/model"
)

var errNegativeID = errors.New("negative id")

// fieldReader pulls typed fields off one record element. The first failure is
// kept and later reads become no-ops.
type fieldReader struct {
	node *Node
	path string
	err  error
}

func (r *fieldReader) child(name string) *Node {
	if r.err != nil {
		return nil
	}
	c, ok := r.node.Child(name)
	if !ok {
		r.err = shapeError(r.path+"/"+name, "missing element")
		return nil
	}
	return c
}

func (r *fieldReader) text(name string) string {
	c := r.child(name)
	if c == nil {
		return ""
	}
	return c.Text
}

func (r *fieldReader) id(name string) int {
	c := r.child(name)
	if c == nil {
		return 0
	}
	v, err := strconv.Atoi(strings.TrimSpace(c.Text))
	if err == nil && v < 0 {
		err = errNegativeID
	}
	if err != nil {
		r.err = valueError(r.path+"/"+name, c.Text, err)
		return 0
	}
	return v
}

func (r *fieldReader) time(name string) *time.Time {
	c := r.child(name)
	if c == nil || c.IsNil() {
		return nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(c.Text))
	if err != nil {
		r.err = valueError(r.path+"/"+name, c.Text, err)
		return nil
	}
	return &t
}

func readUser(r *fieldReader) model.User {
	return model.User{
		ID:     r.id("id"),
		Name:   r.text("name"),
		Email:  r.text("email"),
		Status: r.text("status"),
		Gender: r.text("gender"),
	}
}

func readPost(r *fieldReader) model.Post {
	return model.Post{
		ID:     r.id("id"),
		UserID: r.id("user-id"),
		Title:  r.text("title"),
		Body:   r.text("body"),
	}
}

func readComment(r *fieldReader) model.Comment {
	return model.Comment{
		ID:     r.id("id"),
		PostID: r.id("post-id"),
		Name:   r.text("name"),
		Email:  r.text("email"),
		Body:   r.text("body"),
	}
}

func readTodo(r *fieldReader) model.Todo {
	return model.Todo{
		ID:     r.id("id"),
		UserID: r.id("user-id"),
		Title:  r.text("title"),
		DueOn:  r.time("due-on"),
		Status: r.text("status"),
	}
}

func extractOne[T any](doc *Document, read func(*fieldReader) T) (T, error) {
	var zero T
	root := doc.Root
	if root.Name != rootHash {
		return zero, shapeError(root.Name, "expected %s envelope", rootHash)
	}
	if Classify(doc) == EnvelopeMessage {
		msg, _ := root.Child("message")
		return zero, shapeError(rootHash, "error envelope: %s", msg.Text)
	}
	r := &fieldReader{node: root, path: rootHash}
	v := read(r)
	if r.err != nil {
		return zero, r.err
	}
	return v, nil
}

func extractList[T any](doc *Document, read func(*fieldReader) T) ([]T, error) {
	root := doc.Root
	switch root.Name {
	case rootEmpty:
		return []T{}, nil
	case rootObjects:
	default:
		return nil, shapeError(root.Name, "expected %s or %s envelope", rootObjects, rootEmpty)
	}

	objects := root.All(rootObject)
	out := make([]T, 0, len(objects))
	for i, obj := range objects {
		r := &fieldReader{node: obj, path: fmt.Sprintf("%s/%s[%d]", rootObjects, rootObject, i+1)}
		v := read(r)
		if r.err != nil {
			return nil, r.err
		}
		out = append(out, v)
	}
	return out, nil
}

// ExtractUser reads a single user envelope.
func ExtractUser(doc *Document) (model.User, error) { return extractOne(doc, readUser) }

// ExtractPost reads a single post envelope.
func ExtractPost(doc *Document) (model.Post, error) { return extractOne(doc, readPost) }

// ExtractComment reads a single comment envelope.
func ExtractComment(doc *Document) (model.Comment, error) { return extractOne(doc, readComment) }

// ExtractTodo reads a single todo envelope.
func ExtractTodo(doc *Document) (model.Todo, error) { return extractOne(doc, readTodo) }

// ExtractUsers reads a user list. The empty-collection marker yields an empty slice.
func ExtractUsers(doc *Document) ([]model.User, error) { return extractList(doc, readUser) }

// ExtractPosts reads a post list.
func ExtractPosts(doc *Document) ([]model.Post, error) { return extractList(doc, readPost) }

// ExtractComments reads a comment list.
func ExtractComments(doc *Document) ([]model.Comment, error) {
	return extractList(doc, readComment)
}

// ExtractTodos reads a todo list.
func ExtractTodos(doc *Document) ([]model.Todo, error) { return extractList(doc, readTodo) }

func decode[T any](text []byte, extract func(*Document) (T, error)) (T, error) {
	doc, err := Parse(text)
	if err != nil {
		var zero T
		return zero, err
	}
	return extract(doc)
}

// DecodeUser parses text and extracts a single user.
func DecodeUser(text []byte) (model.User, error) { return decode(text, ExtractUser) }

// DecodeUsers parses text and extracts a user list.
func DecodeUsers(text []byte) ([]model.User, error) { return decode(text, ExtractUsers) }

// DecodePost parses text and extracts a single post.
func DecodePost(text []byte) (model.Post, error) { return decode(text, ExtractPost) }

// DecodePosts parses text and extracts a post list.
func DecodePosts(text []byte) ([]model.Post, error) { return decode(text, ExtractPosts) }

// DecodeComment parses text and extracts a single comment.
func DecodeComment(text []byte) (model.Comment, error) { return decode(text, ExtractComment) }

// DecodeComments parses text and extracts a comment list.
func DecodeComments(text []byte) ([]model.Comment, error) { return decode(text, ExtractComments) }

// DecodeTodo parses text and extracts a single todo.
func DecodeTodo(text []byte) (model.Todo, error) { return decode(text, ExtractTodo) }

// DecodeTodos parses text and extracts a todo list.
func DecodeTodos(text []byte) ([]model.Todo, error) { return decode(text, ExtractTodos) }
