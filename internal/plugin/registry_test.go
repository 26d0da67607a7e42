package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_KeepsOrder(t *testing.T) {
	r, err := NewRegistry(
		Entry[int]{Name: "b", Plugin: 2},
		Entry[int]{Name: "a", Plugin: 1},
		Entry[int]{Name: "c", Plugin: 3},
	)
	require.NoError(t, err)

	var names []string
	for _, e := range r.Entries() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"b", "a", "c"}, names)
	assert.Equal(t, 3, r.Len())
}

func TestNewRegistry_RejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(
		Entry[int]{Name: "a", Plugin: 1},
		Entry[int]{Name: "a", Plugin: 2},
	)
	assert.ErrorIs(t, err, ErrDuplicatePlugin)
}

func TestNewRegistry_RejectsEmptyName(t *testing.T) {
	_, err := NewRegistry(Entry[int]{Plugin: 1})
	assert.Error(t, err)
}

func TestRegistry_Lookup(t *testing.T) {
	r, err := NewRegistry(Entry[string]{Name: "client1", Plugin: "first"})
	require.NoError(t, err)

	p, ok := r.Lookup("client1")
	assert.True(t, ok)
	assert.Equal(t, "first", p)

	p, ok = r.Lookup("client2")
	assert.False(t, ok)
	assert.Empty(t, p)
}

func TestRegistry_EntriesIsACopy(t *testing.T) {
	r, err := NewRegistry(Entry[int]{Name: "a", Plugin: 1})
	require.NoError(t, err)

	entries := r.Entries()
	entries[0].Plugin = 42

	p, _ := r.Lookup("a")
	assert.Equal(t, 1, p)
}

func TestDecodeSettings_Weak(t *testing.T) {
	var out struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	}

	err := DecodeSettings(Settings{"host": "localhost", "port": "8080"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "localhost", out.Host)
	assert.Equal(t, 8080, out.Port)

	err = DecodeSettings(Settings{"port": float64(9091)}, &out)
	require.NoError(t, err)
	assert.Equal(t, 9091, out.Port)
}

func TestEncodeSettings(t *testing.T) {
	in := struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	}{Host: "localhost", Port: 8080}

	s, err := EncodeSettings(in)
	require.NoError(t, err)
	assert.Equal(t, Settings{"host": "localhost", "port": 8080}, s)
}
