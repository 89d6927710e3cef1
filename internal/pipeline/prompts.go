package pipeline

import (
	"fmt"
	"strings"

	"tweetwatch/internal/report"
)

const grammarRules = `Output format (follow strictly):
- Group entries under "## <section>" headers using ONLY these sections: %s.
- Under "## Highlights" write short plain bullets with no links.
- Everywhere else each entry is one line: - [specific title](post URL). Objective description with key facts, numbers and features.
- If a post quotes another post, describe the quoted content.
- Order entries by information value. No closing remarks, no extra prose.`

func sectionList() string {
	return strings.Join(report.SectionNames, ", ")
}

func buildRelevancePrompt(lines []string, windowDesc string) string {
	var sb strings.Builder

	sb.WriteString("You curate an AI-industry feed. Below is a list of scraped social posts")
	sb.WriteString(windowDesc)
	sb.WriteString(", each tagged with its ID.\n\n")
	sb.WriteString("Task: select the posts relevant to the AI field, AI tools or the AI industry.\n\n")
	sb.WriteString("Return ONLY a JSON object listing the selected IDs, urgent ones (major releases, security issues, breaking news) separately:\n")
	sb.WriteString("```json\n{\"relevant_ids\": [\"id1\", \"id2\"], \"urgent_ids\": [\"id1\"]}\n```\n\n---\n")
	sb.WriteString(strings.Join(lines, "\n"))

	return sb.String()
}

func buildSummaryPrompt(lines []string, windowDesc string) string {
	var sb strings.Builder

	sb.WriteString("You curate an AI-industry feed. Below are AI-related social posts")
	sb.WriteString(windowDesc)
	sb.WriteString(".\n\nOrganize them into a categorized digest.\n\n")
	sb.WriteString(fmt.Sprintf(grammarRules, sectionList()))
	sb.WriteString("\n\n---\n")
	sb.WriteString(strings.Join(lines, "\n"))

	return sb.String()
}

func buildMergePrompt(partials []string) string {
	var sb strings.Builder

	sb.WriteString("Below are several partial digests produced from different batches of the same collection run.\n\n")
	sb.WriteString("Merge them into ONE digest: deduplicate entries describing the same underlying event (keep the most complete description), resolve category placement conflicts, and verify every line matches the format.\n\n")
	sb.WriteString(fmt.Sprintf(grammarRules, sectionList()))
	sb.WriteString("\n")

	for i, partial := range partials {
		sb.WriteString(fmt.Sprintf("\n--- Partial digest %d ---\n", i+1))
		sb.WriteString(partial)
		sb.WriteString("\n")
	}

	return sb.String()
}

func buildValidatePrompt(summary string) string {
	var sb strings.Builder

	sb.WriteString("Review the digest below: remove duplicate entries describing the same underlying event, fix any line that deviates from the format, and keep everything else unchanged.\n\n")
	sb.WriteString(fmt.Sprintf(grammarRules, sectionList()))
	sb.WriteString("\n\n---\n")
	sb.WriteString(summary)

	return sb.String()
}
