package task

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func idGen(id string) func() string {
	return func() string { return id }
}

func TestNew_Defaults(t *testing.T) {
	fn := func(ctx context.Context) (any, error) { return nil, nil }
	tk := New(idGen("t-1"), fn)

	assert.Equal(t, "t-1", tk.ID)
	assert.Equal(t, DefaultPriority, tk.Priority)
	assert.Equal(t, StatusPending, tk.Status)
	assert.Empty(t, tk.Dependencies)
	assert.Zero(t, tk.Timeout)
	assert.False(t, tk.CreatedAt.IsZero())
	assert.False(t, tk.UpdatedAt.IsZero())
}

func TestNew_Options(t *testing.T) {
	fn := func(ctx context.Context) (any, error) { return 42, nil }
	tk := New(idGen("t-2"), fn,
		WithPriority(1),
		WithDependencies("a", "b"),
		WithTimeout(0),
	)

	assert.Equal(t, 1, tk.Priority)
	assert.Equal(t, []string{"a", "b"}, tk.Dependencies)
}

func TestNew_AssignsIncreasingSeq(t *testing.T) {
	fn := func(ctx context.Context) (any, error) { return nil, nil }
	first := New(idGen("a"), fn)
	second := New(idGen("b"), fn)

	assert.Less(t, first.Seq, second.Seq)
}

func TestTask_Clone_IsIndependent(t *testing.T) {
	fn := func(ctx context.Context) (any, error) { return nil, nil }
	tk := New(idGen("t-3"), fn, WithDependencies("a"))

	clone := tk.Clone()
	clone.Dependencies[0] = "mutated"
	clone.Status = StatusRunning

	assert.Equal(t, "a", tk.Dependencies[0])
	assert.Equal(t, StatusPending, tk.Status)
}

func TestTask_Clone_CopiesTimePointers(t *testing.T) {
	fn := func(ctx context.Context) (any, error) { return nil, nil }
	tk := New(idGen("t-4"), fn)
	sm := NewStateMachine(tk)
	sm.Start("worker-1")

	clone := tk.Clone()
	if assert.NotNil(t, clone.StartedAt) {
		assert.Equal(t, *tk.StartedAt, *clone.StartedAt)
	}

	// mutating the clone's pointee must not affect the original
	*clone.StartedAt = clone.StartedAt.Add(1)
	assert.NotEqual(t, *clone.StartedAt, *tk.StartedAt)
}

func TestTask_Less_ByPriorityThenSeq(t *testing.T) {
	fn := func(ctx context.Context) (any, error) { return nil, nil }
	urgent := New(idGen("urgent"), fn, WithPriority(1))
	normal := New(idGen("normal"), fn, WithPriority(5))

	assert.True(t, urgent.Less(normal))
	assert.False(t, normal.Less(urgent))

	first := New(idGen("first"), fn, WithPriority(5))
	second := New(idGen("second"), fn, WithPriority(5))
	assert.True(t, first.Less(second))
	assert.False(t, second.Less(first))
}

func TestTask_Func_Invocation(t *testing.T) {
	called := false
	fn := func(ctx context.Context) (any, error) {
		called = true
		return "result", nil
	}
	tk := New(idGen("t-5"), fn)

	result, err := tk.Func(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "result", result)
	assert.True(t, called)
}

func TestTask_Func_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	fn := func(ctx context.Context) (any, error) { return nil, boom }
	tk := New(idGen("t-6"), fn)

	_, err := tk.Func(context.Background())
	assert.ErrorIs(t, err, boom)
}
