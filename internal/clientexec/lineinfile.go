package clientexec

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"sira/internal/action"
)

// RunLineInFile applies the precedence from spec §4.E: a pattern match is
// replaced, an after match gets the line inserted following it, an already
// present identical line is a no-op, and otherwise the line is appended.
// Writes are atomic via temp-file-plus-rename into the same directory.
func RunLineInFile(l *action.LineInFileAction) error {
	original, err := os.ReadFile(l.Path)
	if err != nil {
		return ioFailure("reading %s: %v", l.Path, err)
	}

	lines := splitLines(string(original))
	newLine := l.Line

	switch {
	case l.Pattern != "":
		re, rerr := regexp.Compile(l.Pattern)
		if rerr != nil {
			return actionFailure("compiling pattern %q: %v", l.Pattern, rerr)
		}
		idx := lastMatch(lines, re)
		if idx < 0 {
			// A prior application of this exact action may already have
			// replaced the matching line with l.Line itself, so the
			// pattern no longer matches anything - that's a no-op rerun,
			// not a failure.
			if containsExact(lines, newLine) {
				return nil
			}
			return actionFailure("line_in_file: no line in %s matches pattern %q", l.Path, l.Pattern)
		}
		if l.Indent {
			newLine = leadingWhitespace(lines[idx]) + newLine
		}
		lines[idx] = newLine

	case l.After != "":
		re, rerr := regexp.Compile(l.After)
		if rerr != nil {
			return actionFailure("compiling after-pattern %q: %v", l.After, rerr)
		}
		idx := lastMatch(lines, re)
		if idx < 0 {
			return actionFailure("line_in_file: no line in %s matches after-pattern %q", l.Path, l.After)
		}
		if l.Indent {
			newLine = leadingWhitespace(lines[idx]) + newLine
		}
		lines = append(lines[:idx+1], append([]string{newLine}, lines[idx+1:]...)...)

	default:
		if containsExact(lines, newLine) {
			return nil
		}
		lines = append(lines, newLine)
	}

	return atomicWrite(l.Path, strings.Join(lines, "\n")+"\n")
}

func splitLines(content string) []string {
	content = strings.TrimSuffix(content, "\n")
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}

func lastMatch(lines []string, re *regexp.Regexp) int {
	for i := len(lines) - 1; i >= 0; i-- {
		if re.MatchString(lines[i]) {
			return i
		}
	}
	return -1
}

func containsExact(lines []string, line string) bool {
	for _, l := range lines {
		if l == line {
			return true
		}
	}
	return false
}

func leadingWhitespace(line string) string {
	trimmed := strings.TrimLeft(line, " \t")
	return line[:len(line)-len(trimmed)]
}

func atomicWrite(path, content string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".sira-lif-*")
	if err != nil {
		return ioFailure("creating temp file in %s: %v", dir, err)
	}
	tmpPath := tmp.Name()

	info, statErr := os.Stat(path)
	if statErr == nil {
		os.Chmod(tmpPath, info.Mode())
	}

	if _, err = tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return ioFailure("writing %s: %v", tmpPath, err)
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return ioFailure("closing %s: %v", tmpPath, err)
	}

	if err = os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return ioFailure("renaming %s to %s: %v", tmpPath, path, err)
	}
	return nil
}
