package dto

// SendEmailRequest asks the service to email a customer.
type SendEmailRequest struct {
	CustomerEmail    string `json:"customer_email"`
	Subject          string `json:"subject"`
	Message          string `json:"message"`
	NotificationType string `json:"notification_type"`
}

// SendEmailResponse reports the delivery.
type SendEmailResponse struct {
	Status    string `json:"status"`
	Recipient string `json:"recipient"`
	DemoMode  bool   `json:"demo_mode"`
	Message   string `json:"message"`
}

// FeedbackRequest carries a rating for an agent conversation.
type FeedbackRequest struct {
	Score        *float64 `json:"score"`
	Text         string   `json:"text"`
	InvocationID string   `json:"invocation_id"`
	UserID       string   `json:"user_id"`
	LogType      string   `json:"log_type"`
	ServiceName  string   `json:"service_name"`
}
