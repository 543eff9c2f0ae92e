package extraction

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jonathan/standup-scraper/internal/llm"
)

// Sections is the parsed form of a completion: the two labeled sections
// the prompt asks for. A nil field means the section was present but
// stated no content, or carried an explicit (none) marker.
type Sections struct {
	Progress  *string
	NextSteps *string
}

// labelPattern matches a section label at the start of a line, tolerating
// list markers, quoting, emphasis, and arbitrary casing around the label.
var labelPattern = regexp.MustCompile(`(?i)^[\s>*#\-]*(progress|next[ _]steps)[\s*_]*:\s*(.*)$`)

// noneMarkers are completion values treated as "no content stated".
var noneMarkers = map[string]struct{}{
	"none":            {},
	"(none)":          {},
	"n/a":             {},
	"nothing":         {},
	"none identified": {},
	"none mentioned":  {},
	"null":            {},
}

// ParseCompletion locates the PROGRESS and NEXT STEPS sections in a raw
// completion. It is a pure function of its input. A missing section yields
// a nil field; if neither label is recognized at all the completion is
// unparsable and an error is returned.
func ParseCompletion(text string) (Sections, error) {
	text = llm.StripFences(text)

	var (
		sections     Sections
		current      *[]string
		progressBuf  []string
		nextStepsBuf []string
		sawProgress  bool
		sawNextSteps bool
	)

	for _, line := range strings.Split(text, "\n") {
		m := labelPattern.FindStringSubmatch(line)
		if m == nil {
			if current != nil {
				*current = append(*current, line)
			}
			continue
		}

		label := strings.ReplaceAll(strings.ToLower(m[1]), "_", " ")
		switch label {
		case "progress":
			sawProgress = true
			progressBuf = append(progressBuf, m[2])
			current = &progressBuf
		case "next steps":
			sawNextSteps = true
			nextStepsBuf = append(nextStepsBuf, m[2])
			current = &nextStepsBuf
		}
	}

	if !sawProgress && !sawNextSteps {
		return Sections{}, fmt.Errorf("no recognizable PROGRESS or NEXT STEPS section in completion")
	}

	if sawProgress {
		sections.Progress = normalizeSection(progressBuf)
	}
	if sawNextSteps {
		sections.NextSteps = normalizeSection(nextStepsBuf)
	}
	return sections, nil
}

// normalizeSection joins the collected lines, trims decoration, and maps
// empty or explicit none markers to absent.
func normalizeSection(lines []string) *string {
	joined := strings.TrimSpace(strings.Join(lines, "\n"))
	joined = strings.Trim(joined, "* ")
	joined = strings.TrimSpace(joined)

	probe := strings.ToLower(strings.TrimSuffix(joined, "."))
	if joined == "" {
		return nil
	}
	if _, ok := noneMarkers[probe]; ok {
		return nil
	}
	return &joined
}
