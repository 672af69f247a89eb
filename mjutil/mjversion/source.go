// Package mjversion reads the "name 1.2.3" strings that identify
// the program writing a log.
package mjversion

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
)

// Source is a program name with an optional version.
type Source struct {
	Name    string
	Version *semver.Version // nil when there is none
}

// Parse splits a trailing version, separated by a space or a
// dash and optionally prefixed with "v", from the name:
// "billing 1.4.0", "billing-v1.4.0-rc.1". A string without a
// version is all name. A last word that starts like a version but
// is not strict semver is an error.
func Parse(s string) (Source, error) {
	for i := 0; i < len(s); i++ {
		if s[i] != ' ' && s[i] != '-' || i == 0 {
			continue
		}
		if v, err := semver.StrictNewVersion(strings.TrimPrefix(s[i+1:], "v")); err == nil {
			return Source{Name: s[:i], Version: v}, nil
		}
	}
	last := s[strings.LastIndexAny(s, " -")+1:]
	if looksLikeVersion(last) {
		return Source{Name: s}, errors.Errorf("version %q in %q is not valid semver", last, s)
	}
	return Source{Name: s}, nil
}

// Lenient is Parse with a bad version kept as part of the name.
func Lenient(s string) Source {
	src, _ := Parse(s)
	return src
}

func looksLikeVersion(w string) bool {
	w = strings.TrimPrefix(w, "v")
	return w != "" && w[0] >= '0' && w[0] <= '9' && strings.Contains(w, ".")
}

// String is "name 1.2.3", or just the name.
func (s Source) String() string {
	if s.Version == nil {
		return s.Name
	}
	return s.Name + " " + s.Version.String()
}
