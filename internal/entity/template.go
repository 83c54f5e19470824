package entity

// MessageTemplate represents a reusable outbound-message template.
type MessageTemplate struct {
	ID      int32  `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}
