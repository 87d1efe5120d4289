package service

import (
	"fmt"
	"strings"

	"go-ai-image-detector/pkg/models"
)

// reportDisclaimer is a fixed string appended to every exported report.
const reportDisclaimer = "Disclaimer: this score is a heuristic estimate derived from pixel " +
	"statistics alone. It is not proof of an image's origin and must not be " +
	"used for authentication or forensic purposes."

// FormatReport renders the plain-text report: score to two decimal places,
// verdict label, and the fixed disclaimer.
func (s *detectionService) FormatReport(result *models.DetectionResponse) string {
	var b strings.Builder

	b.WriteString("AI Image Detection Report\n")
	b.WriteString("=========================\n\n")
	if result.ImageURL != "" {
		fmt.Fprintf(&b, "Image:   %s\n", result.ImageURL)
	}
	fmt.Fprintf(&b, "Score:   %.2f / 100\n", result.Score)
	fmt.Fprintf(&b, "Verdict: %s\n", result.Verdict)
	fmt.Fprintf(&b, "Analyzed at: %s\n\n", result.Timestamp)
	b.WriteString(reportDisclaimer)
	b.WriteString("\n")

	return b.String()
}
