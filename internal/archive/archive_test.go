package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestAppendEntry(t *testing.T) {
	s := newTestStore(t)

	path, err := s.AppendEntry("Libia", "2025-01-05", "@canal1", "2025-01-05 10:00:00", "  Ataque en Trípoli  ")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.base, "libia", "2025-01-05.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "--- @canal1 @ 2025-01-05 10:00:00 ---\nAtaque en Trípoli\n\n", string(data))

	_, err = s.AppendEntry("Libia", "2025-01-05", "@canal2", "2025-01-05 11:00:00", "otro")
	require.NoError(t, err)

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "--- @canal1 @ 2025-01-05 10:00:00 ---\nAtaque en Trípoli\n\n"+
		"--- @canal2 @ 2025-01-05 11:00:00 ---\notro\n\n", string(data))
}

func TestReadDay(t *testing.T) {
	s := newTestStore(t)

	text, err := s.ReadDay("libia", "2025-01-05")
	require.NoError(t, err)
	assert.Equal(t, "", text)

	_, err = s.AppendEntry("Libia", "2025-01-05", "@c", "2025-01-05 09:00:00", "uno")
	require.NoError(t, err)

	text, err = s.ReadDay("libia", "2025-01-05")
	require.NoError(t, err)
	assert.Equal(t, "--- @c @ 2025-01-05 09:00:00 ---\nuno\n\n", text)
}

func TestReadRecent(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AppendEntry("libia", "2025-01-04", "@c", "2025-01-04 09:00:00", "uno")
	require.NoError(t, err)
	_, err = s.AppendEntry("libia", "2025-01-05", "@c", "2025-01-05 09:00:00", "dos")
	require.NoError(t, err)

	text, err := s.ReadRecent("libia", []string{"2025-01-03", "2025-01-04", "2025-01-05"})
	require.NoError(t, err)
	assert.Equal(t, "\n===== LIBIA :: 2025-01-04 =====\n"+
		"--- @c @ 2025-01-04 09:00:00 ---\nuno\n\n"+
		"\n===== LIBIA :: 2025-01-05 =====\n"+
		"--- @c @ 2025-01-05 09:00:00 ---\ndos\n\n", text)
}

func TestLatestFile(t *testing.T) {
	s := newTestStore(t)

	latest, err := s.LatestFile("haiti")
	require.NoError(t, err)
	assert.Equal(t, "", latest)

	_, err = s.AppendEntry("haiti", "2025-01-04", "@c", "2025-01-04 09:00:00", "a")
	require.NoError(t, err)
	_, err = s.AppendEntry("haiti", "2025-01-05", "@c", "2025-01-05 09:00:00", "b")
	require.NoError(t, err)

	latest, err = s.LatestFile("haiti")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.base, "haiti", "2025-01-05.txt"), latest)
}

func TestReorder(t *testing.T) {
	s := newTestStore(t)
	path := filepath.Join(s.base, "archivo.txt")
	content := "METEO: despejado\n" +
		"--- @zeta @ 2025-01-05 09:00:00 ---\nsegundo\n\n" +
		"--- @alfa @ 2025-01-05 08:00:00 ---\nprimero\n\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	require.NoError(t, s.Reorder(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "METEO: despejado\n"+
		"--- @alfa @ 2025-01-05 08:00:00 ---\nprimero\n\n"+
		"--- @zeta @ 2025-01-05 09:00:00 ---\nsegundo\n\n", string(data))
}

func TestReorder_TitleBreaksTies(t *testing.T) {
	s := newTestStore(t)
	path := filepath.Join(s.base, "archivo.txt")
	content := "--- @Beta @ 2025-01-05 08:00:00 ---\nb\n\n" +
		"--- @alfa @ 2025-01-05 08:00:00 ---\na\n\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	require.NoError(t, s.Reorder(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "--- @alfa @ 2025-01-05 08:00:00 ---\na\n\n"+
		"--- @Beta @ 2025-01-05 08:00:00 ---\nb\n\n", string(data))
}

func TestReorder_NoHeadersUntouched(t *testing.T) {
	s := newTestStore(t)
	path := filepath.Join(s.base, "archivo.txt")
	require.NoError(t, os.WriteFile(path, []byte("solo prefijo\nsin entradas\n"), 0o644))

	require.NoError(t, s.Reorder(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "solo prefijo\nsin entradas\n", string(data))
}

func TestReorder_MissingFile(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Reorder(filepath.Join(s.base, "no-existe.txt")))
}
