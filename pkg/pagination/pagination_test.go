package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{
		CreatedAt: time.Date(2025, 8, 17, 10, 30, 0, 123, time.UTC),
		ID:        uuid.New(),
	}
	out, err := ParseCursor(EncodeCursor(in))
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.ID, out.ID)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	cursor, err := ParseCursor("")
	require.NoError(t, err)
	assert.Nil(t, cursor)

	_, err = ParseCursor("%%%")
	assert.Error(t, err)

	_, err = ParseCursor(EncodeCursor(Cursor{}) + "x")
	assert.Error(t, err)
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+50))
	assert.Equal(t, 10, NormalizeLimit(10))
	assert.Equal(t, 11, LimitWithBuffer(10))
}

func TestTrim(t *testing.T) {
	type row struct {
		id uuid.UUID
		at time.Time
	}
	now := time.Now().UTC()
	rows := []row{{uuid.New(), now}, {uuid.New(), now.Add(-time.Minute)}, {uuid.New(), now.Add(-2 * time.Minute)}}
	cursorOf := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page, next := Trim(rows, 2, cursorOf)
	require.Len(t, page, 2)
	require.NotEmpty(t, next)
	decoded, err := ParseCursor(next)
	require.NoError(t, err)
	assert.Equal(t, rows[1].id, decoded.ID)

	page, next = Trim(rows, 5, cursorOf)
	assert.Len(t, page, 3)
	assert.Empty(t, next)
}
