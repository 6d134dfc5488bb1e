package invoke

import "strings"

// codeKeywords are coarse signals that stdout contains code rather than prose.
var codeKeywords = []string{"file:", "class ", "function ", "def ", "import "}

// ClassifyOutput labels captured stdout as "diff", "code", or "explanation"
// using simple textual heuristics. The label is advisory metadata only; it
// never affects caching or invocation behavior. The requested output format
// is accepted for symmetry with the result envelope but does not influence
// detection.
func ClassifyOutput(stdout, outputFormat string) string {
	_ = outputFormat

	if strings.Contains(stdout, "--- a/") && strings.Contains(stdout, "+++ b/") {
		return "diff"
	}

	if strings.Count(stdout, "```") >= 2 {
		return "code"
	}

	lower := strings.ToLower(stdout)
	for _, keyword := range codeKeywords {
		if strings.Contains(lower, keyword) {
			return "code"
		}
	}

	return "explanation"
}
