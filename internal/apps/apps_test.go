package apps

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDesktop(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestBuild_ScansDescriptors(t *testing.T) {
	dir := t.TempDir()
	writeDesktop(t, dir, "org.gnome.Nautilus.desktop", `[Desktop Entry]
Name=Files
Name[fr]=Fichiers
Exec=nautilus --new-window %U
Type=Application

[Desktop Action new-window]
Name=New Window
Exec=nautilus-other --new-window
`)
	writeDesktop(t, dir, "hidden.desktop", "[Desktop Entry]\nName=Secret\nExec=secret\nNoDisplay=true\n")
	writeDesktop(t, dir, "broken.desktop", "[Desktop Entry]\nName=NoExec\n")
	writeDesktop(t, dir, "notes.txt", "[Desktop Entry]\nName=Ignored\nExec=ignored\n")

	idx := Build(Options{Dirs: []string{dir}, Locale: "fr"})

	assert.Equal(t, Index{
		"org.gnome.nautilus": "nautilus",
		"files":              "nautilus",
		"fichiers":           "nautilus",
	}, idx)
}

func TestBuild_MissingDirIsSkipped(t *testing.T) {
	idx := Build(Options{
		Dirs:      []string{filepath.Join(t.TempDir(), "nope")},
		Overrides: map[string]string{"Terminal": "gnome-terminal"},
	})
	assert.Equal(t, Index{"terminal": "gnome-terminal"}, idx)
}

func TestBuild_OverridesWin(t *testing.T) {
	dir := t.TempDir()
	writeDesktop(t, dir, "firefox.desktop", "[Desktop Entry]\nName=Firefox\nExec=/opt/firefox/firefox %u\n")

	idx := Build(Options{Dirs: []string{dir}, Overrides: Defaults})

	assert.Equal(t, "firefox", idx["firefox"])
	assert.Equal(t, "gnome-calculator", idx["calculatrice"])
}

func TestBuild_LaterDirectoryWins(t *testing.T) {
	system, local := t.TempDir(), t.TempDir()
	writeDesktop(t, system, "editor.desktop", "[Desktop Entry]\nName=Editor\nExec=gedit\n")
	writeDesktop(t, local, "editor.desktop", "[Desktop Entry]\nName=Editor\nExec=kate\n")

	idx := Build(Options{Dirs: []string{system, local}})
	assert.Equal(t, "kate", idx["editor"])
}

func TestBuild_Idempotent(t *testing.T) {
	dir := t.TempDir()
	writeDesktop(t, dir, "a.desktop", "[Desktop Entry]\nName=Shared\nExec=first\n")
	writeDesktop(t, dir, "b.desktop", "[Desktop Entry]\nName=Shared\nExec=second\n")

	opts := Options{Dirs: []string{dir}, Locale: "fr", Overrides: Defaults}
	first := Build(opts)
	second := Build(opts)

	assert.Equal(t, first, second)
	assert.Equal(t, "second", first["shared"])
}

func TestAliases_Sorted(t *testing.T) {
	idx := Index{"b": "x", "a": "y", "c": "z"}
	assert.Equal(t, []string{"a", "b", "c"}, idx.Aliases())
}

func TestParseDescriptor_NoLocale(t *testing.T) {
	d := parseDescriptor([]byte("Name=Gimp\nName[fr]=Gimp FR\nExec=gimp-2.10 %U\n"), "")
	assert.Equal(t, "Gimp", d.name)
	assert.Empty(t, d.localName)
	assert.Equal(t, "gimp-2.10", d.exec)
}
