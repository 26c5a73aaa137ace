package arbor

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundErrorWithID("User", 7)
	assert.EqualError(t, err, "arbor: User not found (id=7)")
	assert.Equal(t, "User", err.Label())
	assert.Equal(t, 7, err.ID())
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, IsNotFound(err))
	assert.True(t, IsNotFound(fmt.Errorf("lookup: %w", err)))
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsNotFound(errors.New("other")))

	assert.EqualError(t, NewNotFoundError("User"), "arbor: User not found")
}

func TestMissingRelationError(t *testing.T) {
	err := NewMissingRelationError("User", "posts")
	assert.EqualError(t, err, `arbor: relation "posts" is not defined on User`)
	assert.True(t, errors.Is(err, ErrMissingRelation))
	assert.True(t, IsMissingRelation(err))
	assert.False(t, IsMissingRelation(errors.New("other")))
}

func TestNotLoadedError(t *testing.T) {
	err := NewNotLoadedError("posts")
	assert.EqualError(t, err, `arbor: relation "posts" was not loaded`)
	assert.True(t, IsNotLoaded(err))
	assert.False(t, IsNotLoaded(nil))
}

func TestQueryError(t *testing.T) {
	inner := errors.New("disk I/O error")
	err := NewQueryError("User", "select", inner)
	assert.EqualError(t, err, "arbor: querying User (select): disk I/O error")
	// The engine failure stays reachable, unmodified.
	assert.True(t, errors.Is(err, inner))
	assert.True(t, IsQueryError(err))
	assert.False(t, IsQueryError(inner))
}

func TestMutationError(t *testing.T) {
	inner := errors.New("UNIQUE constraint failed: users.email")
	err := NewMutationError("User", "insert", inner)
	assert.EqualError(t, err, "arbor: insert User: UNIQUE constraint failed: users.email")
	assert.True(t, errors.Is(err, inner))
	assert.True(t, IsMutationError(err))
	assert.False(t, IsMutationError(inner))
}
