package notify

import "context"

// Message is a plain-text email ready to send.
type Message struct {
	To      string `json:"to"`
	ToName  string `json:"to_name,omitempty"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// EmailSender is any backend that can deliver a Message.
type EmailSender interface {
	Send(ctx context.Context, msg *Message) error
}
