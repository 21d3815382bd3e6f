package objects

import (
	"strings"

	"github.com/praatgo/shell/internal/classes"
	"golang.org/x/text/unicode/norm"
)

// nameSpecials are replaced by underscores in object names, so that a name
// survives as a single word in scripts and file names.
const nameSpecials = " ,.:;\\/()[]{}~`'<>*&^%#@!?$\"|"

const maxDefaultFileName = 200

// CleanName normalizes name to NFC and replaces spaces and special
// characters by underscores.
func CleanName(name string) string {
	name = norm.NFC.String(name)
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(nameSpecials, r) {
			return '_'
		}
		return r
	}, name)
}

func stripExtension(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}

// CombinedName names the result of a command on two objects: the first
// selected object of class c1 and of class c2. Equal names are kept, others
// are joined by an underscore.
func (r *Registry) CombinedName(c1, c2 *classes.Class) (string, error) {
	n1, err := r.NameOfSelected(c1, 1, Forward)
	if err != nil {
		return "", err
	}
	n2, err := r.NameOfSelected(c2, 1, Forward)
	if err != nil {
		return "", err
	}
	if n1 == n2 {
		return n1, nil
	}
	return n1 + "_" + n2, nil
}

// DefaultFileName proposes a file name for saving the selection with the
// given extension. An extension that already contains a dot is a complete
// file name.
func (r *Registry) DefaultFileName(ext string) string {
	if strings.Contains(ext, ".") {
		return ext
	}
	if r.total == 1 {
		for s := range r.Selected(nil) {
			name := []rune(s.name)
			if len(name) > maxDefaultFileName {
				name = name[:maxDefaultFileName]
			}
			if ext == "" {
				ext = s.class.Name
			}
			return string(name) + "." + ext
		}
	}
	if ext == "" {
		return "praat.Collection"
	}
	return "praat." + ext
}
