package analysis

import (
	"fmt"
	"strings"
)

const analysisSystemText = "You are a study-abroad counselling assistant. Return only valid JSON with no surrounding prose. Base every judgement on the applicant profile given; do not invent credentials."

const singlePrompt = `Assess how well this university fits the applicant below.

Applicant profile:
%s

University: %s
Country: %s

Return a valid JSON object with these sections:
{"profile_fit": {"score": <0-100>, "summary": "<text>"}, "cost_analysis": {"affordability": "<low|moderate|high|unknown>", "summary": "<text>"}, "preference_match": {"score": <0-100>, "summary": "<text>"}, "admission_chance": {"band": "<safety|moderate|reach>", "summary": "<text>"}, "risk_level": "<low|moderate|high>"}`

const batchPromptHeader = `Assess how well each university below fits the applicant.

Applicant profile:
%s

Universities:
%s

Return a valid JSON array with one element per university. Each element must carry the university's number as "index" plus the sections:
[{"index": 1, "profile_fit": {"score": <0-100>, "summary": "<text>"}, "cost_analysis": {"affordability": "<low|moderate|high|unknown>", "summary": "<text>"}, "preference_match": {"score": <0-100>, "summary": "<text>"}, "admission_chance": {"band": "<safety|moderate|reach>", "summary": "<text>"}, "risk_level": "<low|moderate|high>"}, ...]`

func buildSinglePrompt(profile string, t Target) string {
	return fmt.Sprintf(singlePrompt, profile, t.Name, t.Country)
}

func buildBatchPrompt(profile string, targets []Target) string {
	var b strings.Builder
	for i, t := range targets {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, t.Name, t.Country)
	}
	return fmt.Sprintf(batchPromptHeader, profile, strings.TrimRight(b.String(), "\n"))
}
