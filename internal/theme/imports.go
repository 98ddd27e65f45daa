package theme

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/jmylchreest/themectl/internal/fetch"
)

// importRegex matches an @import statement at the start of a line:
//
//	@import "file.css";  @import 'file.css'  @import url("file.css");  @import url(file.css)
var importRegex = regexp.MustCompile(`(?m)^[ \t]*@import[ \t]+(?:url\([ \t]*)?(?:"([^"\n]*)"|'([^'\n]*)'|([^\s"';)]+))[ \t]*\)?[ \t]*;?`)

// importStatement is one matched @import. Text is the exact matched source
// and is used as the substitution key.
type importStatement struct {
	Text   string
	Target string
}

// findImports returns every @import statement in css, in source order.
func findImports(css string) []importStatement {
	matches := importRegex.FindAllStringSubmatch(css, -1)
	if len(matches) == 0 {
		return nil
	}

	statements := make([]importStatement, 0, len(matches))
	for _, m := range matches {
		target := m[1]
		if target == "" {
			target = m[2]
		}
		if target == "" {
			target = m[3]
		}
		statements = append(statements, importStatement{Text: m[0], Target: target})
	}
	return statements
}

// hasImports reports whether css still contains an @import statement.
func hasImports(css string) bool {
	return importRegex.MatchString(css)
}

// resolveLocator resolves target against base, the locator of the text the
// statement was found in. Local targets are joined onto base's directory;
// under a remote base, relative targets use URL reference resolution.
func resolveLocator(target, base string) (string, error) {
	if target == "" {
		return "", fmt.Errorf("empty @import target")
	}

	switch fetch.Scheme(target) {
	case fetch.SchemeHTTP, fetch.SchemeHTTPS:
		return target, nil
	case fetch.SchemeFile:
		p, err := fetch.LocalPath(target)
		if err != nil {
			return "", err
		}
		return filepath.Clean(p), nil
	case "":
	default:
		return target, nil
	}

	if fetch.IsRemote(base) {
		baseURL, err := url.Parse(base)
		if err != nil {
			return "", fmt.Errorf("invalid base URL %s: %w", base, err)
		}
		ref, err := url.Parse(target)
		if err != nil {
			return "", fmt.Errorf("invalid @import target %s: %w", target, err)
		}
		return baseURL.ResolveReference(ref).String(), nil
	}

	if filepath.IsAbs(target) {
		return filepath.Clean(target), nil
	}

	basePath, err := fetch.LocalPath(base)
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(basePath), target), nil
}

// decodeText converts fetched bytes to a string, honouring a UTF-8 or UTF-16
// byte order mark.
func decodeText(raw []byte) (string, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, raw)
	if err != nil {
		return "", fmt.Errorf("decoding imported text: %w", err)
	}
	return string(out), nil
}
