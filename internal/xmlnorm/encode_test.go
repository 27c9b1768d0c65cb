package xmlnorm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FairForge/gorest-e2e/internal/model"
)

func TestEncodeRoundTrip(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	due := time.Date(2025, 1, 2, 15, 4, 5, 6_000_000, ist)

	t.Run("user", func(t *testing.T) {
		in := model.User{ID: 42, Name: "john & co", Email: "john@mail.com", Status: "active", Gender: "male"}
		out, err := EncodeRecord(in)
		require.NoError(t, err)

		got, err := DecodeUser(out)
		require.NoError(t, err)
		assert.Equal(t, in, got)
	})

	t.Run("post list", func(t *testing.T) {
		in := []model.Post{
			{ID: 2, UserID: 1, Title: "<b>second</b>", Body: "x"},
			{ID: 1, UserID: 1, Title: "first", Body: "y"},
		}
		out, err := EncodeList(in)
		require.NoError(t, err)
		assert.Contains(t, string(out), `<user-id type="integer">1</user-id>`)

		got, err := DecodePosts(out)
		require.NoError(t, err)
		assert.Equal(t, in, got)
	})

	t.Run("comment", func(t *testing.T) {
		in := model.Comment{ID: 3, PostID: 2, Name: "n", Email: "e@mail.com", Body: "body"}
		out, err := EncodeRecord(in)
		require.NoError(t, err)

		got, err := DecodeComment(out)
		require.NoError(t, err)
		assert.Equal(t, in, got)
	})

	t.Run("todo keeps the instant", func(t *testing.T) {
		in := model.Todo{ID: 4, UserID: 1, Title: "t", DueOn: &due, Status: "pending"}
		out, err := EncodeRecord(in)
		require.NoError(t, err)
		assert.Contains(t, string(out), "2025-01-02T15:04:05.006+05:30")

		got, err := DecodeTodo(out)
		require.NoError(t, err)
		require.NotNil(t, got.DueOn)
		assert.True(t, due.Equal(*got.DueOn))
	})

	t.Run("todo without due date", func(t *testing.T) {
		out, err := EncodeList([]model.Todo{{ID: 5, UserID: 1, Title: "t", Status: "completed"}})
		require.NoError(t, err)
		assert.Contains(t, string(out), `nil="true"`)

		got, err := DecodeTodos(out)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Nil(t, got[0].DueOn)
	})

	t.Run("empty list uses the marker", func(t *testing.T) {
		out, err := EncodeList([]model.User{})
		require.NoError(t, err)

		doc, err := Parse(out)
		require.NoError(t, err)
		assert.Equal(t, EnvelopeEmpty, Classify(doc))
	})

	t.Run("messages", func(t *testing.T) {
		out, err := EncodeMessage(model.SimpleMessage("Authentication failed"))
		require.NoError(t, err)
		msg, err := DecodeMessage(out)
		require.NoError(t, err)
		assert.Equal(t, model.SimpleMessage("Authentication failed"), msg)

		in := model.ValidationMessage(model.ErrorDetail{Field: "email", Message: "has already been taken"})
		out, err = EncodeMessage(in)
		require.NoError(t, err)
		msg, err = DecodeMessage(out)
		require.NoError(t, err)
		assert.Equal(t, in, msg)
	})
}
