package domain

// Message is an outbound email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}
