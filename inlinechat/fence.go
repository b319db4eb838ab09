package inlinechat

import "strings"

// ExtractCommand returns the contents of the first top-level fenced code
// block in text with its fence lines removed. A fence is a run of at least
// three backticks or tildes indented by no more than three spaces. Blocks
// nested in quotes or list items are not top-level and are ignored. Body
// lines lose as much leading space as the opening fence was indented. An
// unterminated block runs to the end of text. Blocks whose contents are blank
// do not count.
//
// A fence that opens and closes on the same line, such as "```echo hi```",
// yields the text between the markers.
func ExtractCommand(text string) (string, bool) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var nest containers
	for i := 0; i < len(lines); i++ {
		if nest.owns(lines[i]) {
			continue
		}
		marker, n, indent, rest, ok := openingFence(lines[i])
		if !ok {
			continue
		}

		if inline, ok := singleLineBlock(rest, marker, n); ok {
			if strings.TrimSpace(inline) == "" {
				continue
			}
			return inline, true
		}
		if marker == '`' && strings.ContainsRune(rest, '`') {
			// Backtick info strings cannot contain backticks; this is a code span.
			continue
		}

		var body []string
		end := len(lines)
		for j := i + 1; j < len(lines); j++ {
			if isClosingFence(lines[j], marker, n) {
				end = j
				break
			}
			body = append(body, stripIndent(lines[j], indent))
		}
		code := strings.Join(body, "\n")
		if strings.TrimSpace(code) == "" {
			i = end
			continue
		}
		return code, true
	}
	return "", false
}

// openingFence reports whether line opens a fence and returns the fence
// character, its length, its indentation and the text after it.
func openingFence(line string) (marker byte, n, indent int, rest string, ok bool) {
	trimmed, indent := trimIndent(line)
	if indent > 3 || len(trimmed) < 3 {
		return 0, 0, 0, "", false
	}
	marker = trimmed[0]
	if marker != '`' && marker != '~' {
		return 0, 0, 0, "", false
	}
	n = fenceRun(trimmed, marker)
	if n < 3 {
		return 0, 0, 0, "", false
	}
	return marker, n, indent, trimmed[n:], true
}

// containers tracks the blockquote and list item open at the current line.
type containers struct {
	listIndent int // content column of the open list item, 0 when none
	quoted     bool
	paragraph  bool // last line was text inside a container
}

// owns reports whether line belongs to an open blockquote or list item,
// opening and closing containers as it goes.
func (c *containers) owns(line string) bool {
	if strings.TrimSpace(line) == "" {
		c.quoted = false
		c.paragraph = false
		return true
	}
	trimmed, indent := trimIndent(line)
	if indent <= 3 && strings.HasPrefix(trimmed, ">") {
		c.quoted = true
		c.paragraph = true
		return true
	}
	if c.listIndent > 0 && indent >= c.listIndent {
		c.paragraph = true
		return true
	}
	if indent <= 3 {
		if width, ok := listMarker(trimmed); ok {
			c.listIndent = indent + width
			c.quoted = false
			c.paragraph = true
			return true
		}
	}
	if _, _, _, _, fence := openingFence(line); !fence && c.paragraph && (c.quoted || c.listIndent > 0) {
		// Lazy continuation of the container's paragraph.
		return true
	}
	*c = containers{}
	return false
}

// listMarker reports whether s starts with a bullet or ordered list marker
// and returns the width up to the item's content.
func listMarker(s string) (int, bool) {
	n := 0
	if s != "" && (s[0] == '-' || s[0] == '*' || s[0] == '+') {
		n = 1
	} else {
		for n < len(s) && n < 9 && s[n] >= '0' && s[n] <= '9' {
			n++
		}
		if n == 0 || n == len(s) || (s[n] != '.' && s[n] != ')') {
			return 0, false
		}
		n++
	}
	if n == len(s) {
		return n + 1, true
	}
	if s[n] != ' ' && s[n] != '\t' {
		return 0, false
	}
	spaces := 0
	for n+spaces < len(s) && s[n+spaces] == ' ' {
		spaces++
	}
	if spaces == 0 || spaces > 4 || n+spaces == len(s) {
		spaces = 1
	}
	return n + spaces, true
}

// stripIndent removes up to n leading spaces from line.
func stripIndent(line string, n int) string {
	i := 0
	for i < n && i < len(line) && line[i] == ' ' {
		i++
	}
	return line[i:]
}

func isClosingFence(line string, marker byte, n int) bool {
	trimmed, indent := trimIndent(line)
	if indent > 3 {
		return false
	}
	run := fenceRun(trimmed, marker)
	if run < n {
		return false
	}
	return strings.TrimSpace(trimmed[run:]) == ""
}

// singleLineBlock handles "```code```" where the closing fence sits on the
// opening line.
func singleLineBlock(rest string, marker byte, n int) (string, bool) {
	trimmed := strings.TrimRight(rest, " \t")
	closing := strings.Repeat(string(marker), n)
	if !strings.HasSuffix(trimmed, closing) {
		return "", false
	}
	inner := strings.TrimSuffix(trimmed, closing)
	inner = strings.TrimRight(inner, string(marker))
	return strings.TrimSpace(inner), true
}

func trimIndent(line string) (string, int) {
	indent := 0
	for indent < len(line) && line[indent] == ' ' {
		indent++
	}
	if indent < len(line) && line[indent] == '\t' {
		return line, 4
	}
	return line[indent:], indent
}

func fenceRun(s string, marker byte) int {
	n := 0
	for n < len(s) && s[n] == marker {
		n++
	}
	return n
}
