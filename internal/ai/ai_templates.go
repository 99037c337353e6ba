package ai

import (
	"fmt"
	"strings"

	"github.com/shanehull/annwatch/internal/types"
)

const systemInstruction = `
# [INSTRUCTION]

You help students and job seekers keep up with a Turkish university's announcement
board. You receive announcement titles (in Turkish) that matched the reader's keywords,
each optionally followed by a link.

For every announcement, state in English what is offered (academic staff vacancy,
scholarship, exam, registration, event, ...) and the application deadline if the
title contains one. Then write a summary of at most three sentences covering all of
them together.

---

# [RULES]

- Use only the information in the titles. Do not invent dates, departments or counts.
- Keep each title exactly as given in the "title" field.
- Leave "deadline" empty when the title has no date.
- Keep the summary factual and short; it is read on a phone.
`

var userPromptTemplate = `
The following %d announcement(s) matched the keywords: %s

---
%s
---
`

func buildUserPrompt(matches []types.Match) string {
	keywordSet := map[string]struct{}{}
	var keywords []string
	var lines []string

	for i, m := range matches {
		line := fmt.Sprintf("%d. %s", i+1, m.Title)
		if m.Link != "" {
			line += " (" + m.Link + ")"
		}
		lines = append(lines, line)

		for _, kw := range m.KeywordsFound {
			if _, ok := keywordSet[kw]; !ok {
				keywordSet[kw] = struct{}{}
				keywords = append(keywords, kw)
			}
		}
	}

	kwList := "(none)"
	if len(keywords) > 0 {
		kwList = strings.Join(keywords, ", ")
	}

	return fmt.Sprintf(userPromptTemplate,
		len(matches),
		kwList,
		strings.Join(lines, "\n"),
	)
}
