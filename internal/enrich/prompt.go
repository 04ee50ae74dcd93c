package enrich

import (
	"fmt"
	"strings"
)

const enrichSystemText = "You are a study-abroad research assistant. Return only valid JSON with no surrounding prose. Use numbers for costs (USD per year) and rates (percent). Use null for facts you do not know."

const singlePrompt = `Provide key facts about this university for a prospective international student.

University: %s
Country: %s

Return a valid JSON object with these fields:
{"tuition_estimate": <USD/year>, "living_cost_estimate": <USD/year>, "acceptance_rate": <percent>, "ranking": <global rank>, "min_gpa": <0.0-4.0>, "ielts_requirement": <band>, "application_deadline": "<month>"}`

const batchPromptHeader = `Provide key facts about each of the following universities for prospective international students.

Universities:
%s

Return a valid JSON array with one element per university. Each element must carry the university's number as "index" plus the data fields:
[{"index": 1, "tuition_estimate": <USD/year>, "living_cost_estimate": <USD/year>, "acceptance_rate": <percent>, "ranking": <global rank>, "min_gpa": <0.0-4.0>, "ielts_requirement": <band>, "application_deadline": "<month>"}, ...]`

func buildSinglePrompt(name, country string) string {
	return fmt.Sprintf(singlePrompt, name, country)
}

func buildBatchPrompt(entities []Descriptor) string {
	var b strings.Builder
	for i, e := range entities {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, e.Name, e.Country)
	}
	return fmt.Sprintf(batchPromptHeader, strings.TrimRight(b.String(), "\n"))
}
