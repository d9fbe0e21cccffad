package dirty

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/flow"
)

func collection(t *testing.T, names ...string) flow.Collection {
	t.Helper()
	c := flow.Collection{}
	for _, name := range names {
		var err error
		c, err = c.CreateFlow(name)
		require.NoError(t, err)
	}
	return c
}

func TestCheckpointIsClean(t *testing.T) {
	tr := New()
	tr.Checkpoint(collection(t, "a", "b"))
	assert.Empty(t, tr.Dirty())
	assert.False(t, tr.IsDirty("a"))
}

func TestEditMarksOnlyTouchedFlow(t *testing.T) {
	c := collection(t, "a", "b", "c")
	tr := New()
	tr.Checkpoint(c)

	edited, err := c.UpdateNode("b", c["b"].Nodes[0].ID, flow.NodePatch{X: new(float64)})
	require.NoError(t, err)
	tr.Refresh(edited)

	assert.Equal(t, []string{"b"}, tr.Dirty())
	assert.True(t, tr.IsDirty("b"))
	assert.False(t, tr.IsDirty("a"))
}

func TestCreateDeleteRename(t *testing.T) {
	c := collection(t, "a", "b")
	tr := New()
	tr.Checkpoint(c)

	t.Run("create", func(t *testing.T) {
		next, err := c.CreateFlow("new")
		require.NoError(t, err)
		tr.Refresh(next)
		assert.Equal(t, []string{"new"}, tr.Dirty())
	})

	t.Run("delete", func(t *testing.T) {
		next, err := c.DeleteFlow("a")
		require.NoError(t, err)
		tr.Refresh(next)
		assert.Equal(t, []string{"a"}, tr.Dirty())
		assert.True(t, tr.IsDirty("a"))
	})

	t.Run("rename", func(t *testing.T) {
		next, err := c.RenameFlow("a", "z")
		require.NoError(t, err)
		tr.Refresh(next)
		assert.Equal(t, []string{"a", "z"}, tr.Dirty())
	})

	t.Run("edit reverted", func(t *testing.T) {
		tr.Refresh(c)
		assert.Empty(t, tr.Dirty())
	})
}

func TestRefreshReusesDigestOfSharedFlow(t *testing.T) {
	c := collection(t, "a")
	tr := New()
	tr.Checkpoint(c)
	d, ok := tr.Current("a")
	require.True(t, ok)

	tr.Refresh(c.Copy())
	again, _ := tr.Current("a")
	assert.Equal(t, d, again)

	i, ok := tr.Initial("a")
	require.True(t, ok)
	assert.Equal(t, d, i)
}

func TestCheckpointResetsBaseline(t *testing.T) {
	c := collection(t, "a")
	tr := New()
	tr.Checkpoint(c)

	next, err := c.CreateFlow("b")
	require.NoError(t, err)
	tr.Refresh(next)
	require.NotEmpty(t, tr.Dirty())

	tr.Checkpoint(next)
	assert.Empty(t, tr.Dirty())
}
