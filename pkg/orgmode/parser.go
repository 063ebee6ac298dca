// Package orgmode reads TODO headlines from Org-mode files as task drafts.
package orgmode

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/harrisonrobin/eisen/pkg/model"
)

var (
	headingRegex  = regexp.MustCompile(`^\*+\s+(?:(TODO|DONE|NEXT|WAITING|CANCELLED)\s+)?(?:\[#([A-Z])\]\s*)?(.*?)(?:\s+(:[\w@:]+:))?\s*$`)
	deadlineRegex = regexp.MustCompile(`DEADLINE:\s+<(\d{4}-\d{2}-\d{2})(?:\s+[A-Za-z]{2,3})?(?:\s+(\d{1,2}:\d{2}))?[^>]*>`)
	planningRegex = regexp.MustCompile(`^(DEADLINE|SCHEDULED|CLOSED):`)
)

// open states are imported; every other keyword, or none, is skipped.
var openStates = map[string]bool{"TODO": true, "NEXT": true, "WAITING": true}

// ParseFiles parses multiple Org-mode files.
func ParseFiles(filePaths []string) ([]model.Draft, error) {
	var all []model.Draft
	for _, filePath := range filePaths {
		file, err := os.Open(filePath)
		if err != nil {
			return nil, err
		}
		drafts, err := Parse(file, filePath)
		file.Close()
		if err != nil {
			return nil, err
		}
		all = append(all, drafts...)
	}
	return all, nil
}

// Parse reads open headlines. Priority C marks a task not important, A, B
// or none important. A DEADLINE without a time is due at the end of that
// day. Tags are kept as #tag words at the top of the description.
func Parse(r io.Reader, source string) ([]model.Draft, error) {
	scanner := bufio.NewScanner(r)
	var drafts []model.Draft
	var current *model.Draft
	var tags []string
	var body []string
	inDrawer := false

	flush := func() {
		if current == nil {
			return
		}
		var desc []string
		if len(tags) > 0 {
			desc = append(desc, "#"+strings.Join(tags, " #"))
		}
		if text := strings.TrimSpace(strings.Join(body, "\n")); text != "" {
			desc = append(desc, text)
		}
		current.Description = strings.Join(desc, "\n\n")
		drafts = append(drafts, *current)
		current, tags, body = nil, nil, nil
	}

	for scanner.Scan() {
		raw := scanner.Text()
		line := strings.TrimSpace(raw)

		if strings.HasPrefix(raw, "*") {
			if m := headingRegex.FindStringSubmatch(raw); m != nil {
				flush()
				inDrawer = false
				if !openStates[m[1]] || strings.TrimSpace(m[3]) == "" {
					continue
				}
				current = &model.Draft{Title: strings.TrimSpace(m[3]), Importance: model.Important, Source: source}
				if m[2] == "C" {
					current.Importance = model.NotImportant
				}
				if m[4] != "" {
					tags = strings.Split(strings.Trim(m[4], ":"), ":")
				}
				continue
			}
		}
		if current == nil {
			continue
		}

		switch {
		case strings.HasPrefix(line, ":") && strings.HasSuffix(line, ":") && line != ":END:":
			inDrawer = true
		case line == ":END:":
			inDrawer = false
		case inDrawer:
		case planningRegex.MatchString(line):
			if m := deadlineRegex.FindStringSubmatch(line); m != nil {
				if due, ok := parseDeadline(m[1], m[2]); ok {
					current.Due = &due
				}
			}
		default:
			body = append(body, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return drafts, nil
}

func parseDeadline(day, clock string) (time.Time, bool) {
	if clock == "" {
		t, err := time.ParseInLocation("2006-01-02", day, time.Local)
		if err != nil {
			return time.Time{}, false
		}
		return t.Add(23*time.Hour + 59*time.Minute), true
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", day+" "+clock, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FilterByTag keeps drafts whose description carries #tag.
func FilterByTag(drafts []model.Draft, tag string) []model.Draft {
	var out []model.Draft
	for _, d := range drafts {
		for _, word := range strings.Fields(d.Description) {
			if word == "#"+tag {
				out = append(out, d)
				break
			}
		}
	}
	return out
}
