package config

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorage_SaveLoadDelete(t *testing.T) {
	st := NewStorageWithPath(t.TempDir())

	require.NoError(t, st.Save("state/local", "web", []byte("pid: 42\n")))

	data, err := st.Load("state/local", "web")
	require.NoError(t, err)
	assert.Equal(t, "pid: 42\n", string(data))

	require.NoError(t, st.Delete("state/local", "web"))
	_, err = st.Load("state/local", "web")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestStorage_DeleteAbsentIsNoError(t *testing.T) {
	st := NewStorageWithPath(t.TempDir())
	assert.NoError(t, st.Delete("state/local", "ghost"))
}

func TestStorage_List(t *testing.T) {
	st := NewStorageWithPath(t.TempDir())

	names, err := st.List("state/local")
	require.NoError(t, err)
	assert.Nil(t, names, "an absent directory lists as empty")

	require.NoError(t, st.Save("state/local", "web", []byte("a: 1\n")))
	require.NoError(t, st.Save("state/local", "api", []byte("a: 1\n")))
	require.NoError(t, st.Save("state/prod", "web", []byte("a: 1\n")))

	names, err = st.List("state/local")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"web", "api"}, names)
}

func TestStorage_SanitizesEntityNames(t *testing.T) {
	st := NewStorageWithPath(t.TempDir())

	require.NoError(t, st.Save("state/local", "../escape", []byte("a: 1\n")))

	names, err := st.List("state/local")
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.NotContains(t, names[0], "..")
}

func TestStorage_RejectsEmptyArguments(t *testing.T) {
	st := NewStorageWithPath(t.TempDir())
	assert.Error(t, st.Save("", "web", nil))
	assert.Error(t, st.Save("state", "", nil))
	_, err := st.Load("", "web")
	assert.Error(t, err)
	assert.Error(t, st.Delete("state", ""))
}
