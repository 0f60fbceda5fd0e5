package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
)

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:([^}]*))?\}`)

// ExpandEnv replaces ${VAR} and ${VAR:default} references. A reference to an
// unset variable without a default is an error wrapping ErrMissingEnv; the
// reference is left in place.
func ExpandEnv(s string) (string, error) {
	x := &expander{}
	out := x.expand(s)
	return out, x.err()
}

// expander collects missing variable errors across several expansions.
type expander struct {
	missing []error
}

func (x *expander) expand(s string) string {
	if s == "" {
		return s
	}
	return envRef.ReplaceAllStringFunc(s, func(match string) string {
		m := envRef.FindStringSubmatch(match)
		if v, ok := os.LookupEnv(m[1]); ok {
			return v
		}
		if m[2] != "" {
			return m[3]
		}
		x.missing = append(x.missing, fmt.Errorf("%w: %s", ErrMissingEnv, m[1]))
		return match
	})
}

func (x *expander) err() error {
	return errors.Join(x.missing...)
}
