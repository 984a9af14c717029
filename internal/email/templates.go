package email

import "fmt"

// AnalysisResultEmail is the message sent to an applicant once their
// business plan has been reviewed.
func AnalysisResultEmail(businessName string, totalScore float64, eligible bool) (subject, text, html string) {
	verdict := "did not reach the eligibility threshold"
	if eligible {
		verdict = "is eligible for the incubation program"
	}

	subject = fmt.Sprintf("Your business plan review: %s", businessName)
	text = fmt.Sprintf(
		"Hello,\n\nThe review of the business plan for %s is complete.\nScore: %.1f/100. Your application %s.\n\nOur team will contact you with the next steps.\n",
		businessName, totalScore, verdict)
	html = fmt.Sprintf(
		`<p>Hello,</p><p>The review of the business plan for <strong>%s</strong> is complete.</p><p>Score: %.1f/100. Your application %s.</p><p>Our team will contact you with the next steps.</p>`,
		businessName, totalScore, verdict)
	return subject, text, html
}
