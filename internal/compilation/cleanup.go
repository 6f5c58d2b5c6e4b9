package compilation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/thep2p/swaypad-compiler/internal/model"
)

// ansiEscape matches terminal colour and cursor sequences forc adds to its diagnostics.
var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

// mainFilePath matches any path ending in the main source file.
var mainFilePath = stagedPathPattern(model.MainFileName)

func stagedPathPattern(fileName string) *regexp.Regexp {
	return regexp.MustCompile(`[^\s"'()<>\[\]]*/` + regexp.QuoteMeta(fileName) + `\b`)
}

// CleanContent normalizes raw tool output for callers: terminal escapes are
// removed, every staged path of fileName (absolute or relative) is replaced by
// the bare fileName so the project ID never leaks, and surrounding whitespace
// is trimmed.
func CleanContent(content, fileName string) string {
	content = ansiEscape.ReplaceAllString(content, "")

	pattern := mainFilePath
	if fileName != model.MainFileName {
		pattern = stagedPathPattern(fileName)
	}
	content = pattern.ReplaceAllLiteralString(content, fileName)

	return strings.TrimSpace(content)
}

// ScrubProject replaces every reference to the staged project at dir with
// model.ProjectPlaceholder: the directory in its absolute and given form, and any
// other occurrence of id.
func ScrubProject(content, dir, id string) string {
	var pairs []string
	if dir != "" {
		if abs, err := filepath.Abs(dir); err == nil && abs != dir {
			pairs = append(pairs, abs, model.ProjectPlaceholder)
		}
		pairs = append(pairs, dir, model.ProjectPlaceholder)
	}
	if id != "" {
		pairs = append(pairs, id, model.ProjectPlaceholder)
	}
	if len(pairs) == 0 {
		return content
	}
	return strings.NewReplacer(pairs...).Replace(content)
}

// ExtractDiagnostic turns the stderr of a failed build into the message shown to
// callers. Output before the first diagnostic about the main file is dropped;
// when no such diagnostic exists the whole stream is kept. An empty result is
// replaced by a generic message carrying the exit code.
func ExtractDiagnostic(stderr []byte, exitCode int) (string, error) {
	if !utf8.Valid(stderr) {
		return "", &ApiError{
			Kind: ErrUndecodableDiagnostics,
			Op:   "decode build output",
			Err:  fmt.Errorf("%d bytes of stderr are not valid UTF-8", len(stderr)),
		}
	}

	text := string(stderr)
	if i := strings.Index(text, model.MainFileMarker); i >= 0 {
		text = text[i:]
	}

	msg := CleanContent(text, model.MainFileName)
	if msg == "" {
		msg = fmt.Sprintf("build failed with exit status %d", exitCode)
	}
	return msg, nil
}
