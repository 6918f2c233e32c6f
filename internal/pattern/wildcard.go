package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// CompileWildcard turns a stored description pattern into an anchored,
// case-insensitive regular expression. Literal characters are escaped and
// each "*" matches any sequence, including an empty one.
func CompileWildcard(p string) (*regexp.Regexp, error) {
	parts := strings.Split(p, Wildcard)
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}

	re, err := regexp.Compile(`(?is)^` + strings.Join(parts, `.*`) + `$`)
	if err != nil {
		return nil, fmt.Errorf("failed to compile wildcard pattern %q: %w", p, err)
	}
	return re, nil
}
