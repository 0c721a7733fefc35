package localStore

import (
	"context"
	"errors"
	"testing"

	"github.com/akolanti/LibraryRAG/internal/domain/ragErrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PutGetListDelete(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	require.NoError(t, err)

	ref, err := s.Put(ctx, []byte("thesis bytes"), "thesis.pdf", "theses/cs")
	require.NoError(t, err)
	assert.Equal(t, "theses/cs/thesis.pdf", ref)

	data, err := s.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "thesis bytes", string(data))

	_, err = s.Put(ctx, []byte("second"), "another.pdf", "theses/cs")
	require.NoError(t, err)

	objects, err := s.List(ctx, "theses/cs")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "another.pdf", objects[0].Name)
	assert.Equal(t, "thesis.pdf", objects[1].Name)
	assert.False(t, objects[1].CreatedTime.IsZero())

	require.NoError(t, s.Delete(ctx, ref))
	_, err = s.Get(ctx, ref)
	assert.True(t, errors.Is(err, ragErrors.ErrNotFound))

	// deleting twice is not an error
	assert.NoError(t, s.Delete(ctx, ref))
}

func TestStore_ListMissingFolder(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	objects, err := s.List(context.Background(), "nothing-here")
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestStore_RefsStayInsideRoot(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	require.NoError(t, err)

	ref, err := s.Put(ctx, []byte("x"), "../../escape.txt", "../outside")
	require.NoError(t, err)
	assert.Equal(t, "outside/escape.txt", ref)
}
