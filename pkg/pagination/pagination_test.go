package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-4))
	assert.Equal(t, 7, NormalizeLimit(7))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+50))
	assert.Equal(t, 8, LimitWithBuffer(7))
}

func TestCursorRoundTripKeepsUTC(t *testing.T) {
	at := time.Date(2026, 5, 1, 10, 30, 0, 123, time.FixedZone("x", 3600))
	id := uuid.New()

	parsed, err := ParseCursor(EncodeCursor(Cursor{CreatedAt: at, ID: id}))
	require.NoError(t, err)
	require.NotNil(t, parsed)
	assert.True(t, parsed.CreatedAt.Equal(at))
	assert.Equal(t, id, parsed.ID)

	empty, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = ParseCursor("!!not-base64")
	assert.Error(t, err)

	_, err = ParseCursor(EncodeCursor(Cursor{CreatedAt: at}))
	assert.Error(t, err, "cursor without id must be rejected")
}

func TestCursorIsURLSafe(t *testing.T) {
	for i := 0; i < 20; i++ {
		token := EncodeCursor(Cursor{CreatedAt: time.Now(), ID: uuid.New()})
		assert.NotContains(t, token, "+")
		assert.NotContains(t, token, "/")
		assert.NotContains(t, token, "=")
	}
}

func TestSplitPage(t *testing.T) {
	type row struct {
		at time.Time
		id uuid.UUID
	}
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := []row{{base, uuid.New()}, {base.Add(-time.Minute), uuid.New()}, {base.Add(-2 * time.Minute), uuid.New()}}
	cursorOf := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page, next := SplitPage(rows, 2, cursorOf)
	require.Len(t, page, 2)
	require.NotNil(t, next)
	assert.Equal(t, rows[1].id, next.ID)

	page, next = SplitPage(rows, 3, cursorOf)
	assert.Len(t, page, 3)
	assert.Nil(t, next)
}
