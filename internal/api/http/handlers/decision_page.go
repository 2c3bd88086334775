package handlers

import (
	"fmt"
	"html"

	"github.com/spec-kit/claim-approval-service/internal/domain"
)

const decisionPageLayout = `<!DOCTYPE html>
<html>
<head>
  <title>%[1]s</title>
  <style>
    body { font-family: Arial, sans-serif; max-width: 600px; margin: 50px auto; padding: 20px; text-align: center; }
    .banner { background-color: %[2]s; padding: 20px; border-radius: 5px; margin: 20px 0; }
    .details { background-color: #f8f9fa; padding: 15px; border-radius: 5px; margin-top: 20px; text-align: left; }
  </style>
</head>
<body>
  <div class="banner">
    <h2>%[1]s</h2>
    <p>%[3]s</p>
  </div>
  <div class="details">
    <p><strong>Ticket ID:</strong> %[4]s</p>
    <p><strong>Claim ID:</strong> %[5]s</p>
    <p><strong>Status:</strong> %[6]s</p>
    <p><strong>Next Steps:</strong> %[7]s</p>
  </div>
  <p style="color: #666; margin-top: 30px;">You may now close this window.</p>
</body>
</html>`

// renderDecisionPage builds the confirmation shown after a customer clicks an email link.
func renderDecisionPage(ticket *domain.ApprovalTicket, alreadyResolved bool) string {
	title, color, lead, next := "Claim Approved Successfully", "#d4edda",
		"Thank you for verifying your claim submission.",
		"You will receive a confirmation email shortly with the claim processing details."
	if ticket.Status == domain.ApprovalStatusRejected {
		title, color, lead, next = "Claim Submission Rejected", "#f8d7da",
			"You have indicated that you did not submit this claim.",
			"Our security team will investigate this matter. You will receive a follow-up email within 24 hours."
	}
	if alreadyResolved {
		lead = "This request was already answered. Your earlier response stands."
	}
	return fmt.Sprintf(decisionPageLayout,
		html.EscapeString(title),
		color,
		html.EscapeString(lead),
		html.EscapeString(ticket.ID),
		html.EscapeString(ticket.ClaimID),
		html.EscapeString(string(ticket.Status)),
		html.EscapeString(next),
	)
}
