// Package path implements the slash-rooted addressing scheme actors live
// under: /, /user, /system, /deadletters, /temp and their descendants.
package path

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidName is returned when a segment fails the allowed character
// set or structural checks (empty, contains '/').
var ErrInvalidName = errors.New("path: invalid name")

var segmentPattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

// ValidateName checks a single path segment against the syntax in
// SPEC_FULL.md §6: ASCII, matching [A-Za-z0-9_.\-]+, non-empty, no '/'.
// '.' and '..' are ordinary characters here, never interpreted as
// relative-path directives.
func ValidateName(name string) error {
	if name == "" {
		return ErrInvalidName
	}
	if strings.Contains(name, "/") {
		return ErrInvalidName
	}
	if !segmentPattern.MatchString(name) {
		return ErrInvalidName
	}
	return nil
}

// Path is an immutable, slash-delimited address. The zero value is the
// root path "/".
type Path struct {
	segments []string
}

// Root is the tree root "/".
var Root = Path{}

// User, System, DeadLetters and Temp are the synthetic top-level children
// every ActorSystem bootstraps (SPEC_FULL.md §3, §4.10).
var (
	User        = Root.Child("user")
	System      = Root.Child("system")
	DeadLetters = Root.Child("deadletters")
	Temp        = Root.Child("temp")
)

// Parse validates and parses an absolute path string such as "/user/a/b".
// Every segment must pass ValidateName. Parse never interprets "." or
// "..".
func Parse(s string) (Path, error) {
	if !strings.HasPrefix(s, "/") {
		return Path{}, ErrInvalidName
	}
	if s == "/" {
		return Root, nil
	}
	parts := strings.Split(strings.TrimPrefix(s, "/"), "/")
	segs := make([]string, 0, len(parts))
	for _, p := range parts {
		if err := ValidateName(p); err != nil {
			return Path{}, err
		}
		segs = append(segs, p)
	}
	return Path{segments: segs}, nil
}

// MustParse is Parse, panicking on error. Intended for static paths
// known at compile time.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Child returns the path obtained by appending name, without validating
// name against the registry (siblings uniqueness is a Registry concern).
func (p Path) Child(name string) Path {
	segs := make([]string, len(p.segments)+1)
	copy(segs, p.segments)
	segs[len(p.segments)] = name
	return Path{segments: segs}
}

// Parent returns the path's parent and true, or the zero Path and false
// if p is already the root.
func (p Path) Parent() (Path, bool) {
	if len(p.segments) == 0 {
		return Path{}, false
	}
	return Path{segments: append([]string(nil), p.segments[:len(p.segments)-1]...)}, true
}

// Name returns the last segment, or "" for the root.
func (p Path) Name() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

// Segments returns a defensive copy of the path's segments.
func (p Path) Segments() []string {
	return append([]string(nil), p.segments...)
}

// String renders the canonical absolute form.
func (p Path) String() string {
	if len(p.segments) == 0 {
		return "/"
	}
	return "/" + strings.Join(p.segments, "/")
}

// Equal compares two paths structurally.
func (p Path) Equal(o Path) bool {
	return p.String() == o.String()
}

// IsRoot reports whether p is the tree root.
func (p Path) IsRoot() bool {
	return len(p.segments) == 0
}
