package scoring

import (
	"bytes"
	"strings"
	"text/template"
)

const promptTemplate = `Analyze the following answers and return ONLY valid JSON with the specified structure. Do not add any introductory text or explanations. The scores should be integers between 0 and 100.

JSON structure:
{
 "stress_score": 0,
 "motivation_score": 0,
 "satisfaction_score": 0,
 "global_score": 0,
 "risk_level": "low|medium|high",
 "recommendations": ["string"],
 "summary": "string"
}

Answers:
{{.Transcript}}`

var prompt = template.Must(template.New("prompt").Parse(promptTemplate))

// BuildPrompt wraps the answer transcript in the scoring instructions.
func BuildPrompt(transcript string) (string, error) {
	var buf bytes.Buffer
	if err := prompt.Execute(&buf, struct{ Transcript string }{transcript}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// StripFences removes markdown code fences a model may wrap its JSON in.
func StripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
