package notifier

// Kind identifies the variant of a Message.
type Kind string

const (
	KindSMS  Kind = "sms"
	KindChat Kind = "chat"
)

// Message is an outbound notification. The set of variants is closed:
// *SMSMessage and *ChatMessage are the only implementations.
type Message interface {
	Kind() Kind
	// RecipientID identifies who the message is for; empty for broadcast
	// kinds such as chat messages.
	RecipientID() string
	Subject() string
	// TransportName pins the message to a named transport of a Transports
	// registry. Empty means any transport that supports the message.
	TransportName() string

	isMessage()
}

// SMSMessage is a text message addressed to a single phone number.
type SMSMessage struct {
	Phone     string
	Text      string
	Transport string
}

// NewSMSMessage returns an SMS for phone with the given text body.
func NewSMSMessage(phone, text string) *SMSMessage {
	return &SMSMessage{Phone: phone, Text: text}
}

func (m *SMSMessage) Kind() Kind            { return KindSMS }
func (m *SMSMessage) RecipientID() string   { return m.Phone }
func (m *SMSMessage) Subject() string       { return m.Text }
func (m *SMSMessage) TransportName() string { return m.Transport }
func (*SMSMessage) isMessage()              {}

// ChatMessage is posted to a channel rather than a person.
type ChatMessage struct {
	Text      string
	Transport string
}

// NewChatMessage returns a chat message with the given text.
func NewChatMessage(text string) *ChatMessage {
	return &ChatMessage{Text: text}
}

func (m *ChatMessage) Kind() Kind            { return KindChat }
func (m *ChatMessage) RecipientID() string   { return "" }
func (m *ChatMessage) Subject() string       { return m.Text }
func (m *ChatMessage) TransportName() string { return m.Transport }
func (*ChatMessage) isMessage()              {}

// SentMessage is the outcome of a successful send.
type SentMessage struct {
	original  Message
	transport string
	messageID string
}

// NewSentMessage records that original was handed over by the transport
// identified by transport.
func NewSentMessage(original Message, transport string) *SentMessage {
	return &SentMessage{original: original, transport: transport}
}

// OriginalMessage returns the message that was sent.
func (s *SentMessage) OriginalMessage() Message { return s.original }

// Transport returns the string form of the transport that sent the message.
func (s *SentMessage) Transport() string { return s.transport }

// MessageID returns the identifier assigned by the remote service, if any.
func (s *SentMessage) MessageID() string { return s.messageID }

// SetMessageID records the identifier assigned by the remote service.
func (s *SentMessage) SetMessageID(id string) { s.messageID = id }
