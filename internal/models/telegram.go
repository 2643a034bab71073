package models

// Choice is one inline response button attached to an outbound message.
type Choice struct {
	Label string
	Data  string
}

// Callback is an inbound button press, independent of the chat transport.
type Callback struct {
	ID        string
	Data      string
	ChatID    int64
	MessageID int
}
