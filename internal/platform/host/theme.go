package host

import (
	"bufio"
	"bytes"
	"context"
	"io/fs"
	"path"
	"strings"

	"github.com/nerrad567/devicekit/internal/deviceinfo"
)

// Theme derives the app theme from GTK_THEME or the GTK 3 settings file.
// Desktop Linux has no accent colour resource, so the accent is always
// reported missing.
func (p *Provider) Theme(_ context.Context) (deviceinfo.Theme, error) {
	t := deviceinfo.Theme{AppTheme: deviceinfo.ThemeLight}

	if gtk := p.env("GTK_THEME"); gtk != "" {
		if strings.HasSuffix(strings.ToLower(gtk), ":dark") || strings.Contains(strings.ToLower(gtk), "-dark") {
			t.AppTheme = deviceinfo.ThemeDark
		}
		return t, deviceinfo.ErrResourceMissing
	}

	if p.gtkPrefersDark() {
		t.AppTheme = deviceinfo.ThemeDark
	}
	return t, deviceinfo.ErrResourceMissing
}

func (p *Provider) gtkPrefersDark() bool {
	home := strings.TrimPrefix(p.env("HOME"), "/")
	if home == "" {
		return false
	}
	data, err := fs.ReadFile(p.fsys, path.Join(home, ".config/gtk-3.0/settings.ini"))
	if err != nil {
		return false
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), "=")
		if !ok {
			continue
		}
		if strings.TrimSpace(key) == "gtk-application-prefer-dark-theme" {
			v := strings.TrimSpace(value)
			return v == "1" || v == "true"
		}
	}
	return false
}
