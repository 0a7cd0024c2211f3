package outlook

// MailFolder is a Graph mailFolder resource.
type MailFolder struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// EmailAddress is the address part of a Graph recipient.
type EmailAddress struct {
	Address string `json:"address"`
}

// Recipient is a Graph recipient wrapper.
type Recipient struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

// Message is the subset of a Graph message the cleanup predicate needs.
type Message struct {
	ID          string     `json:"id"`
	Subject     string     `json:"subject"`
	BodyPreview string     `json:"bodyPreview"`
	From        *Recipient `json:"from"`
}

// FromAddress returns the sender address, or "" when Graph omitted the from
// field (drafts do).
func (m Message) FromAddress() string {
	if m.From == nil {
		return ""
	}
	return m.From.EmailAddress.Address
}

// MessageRule is a Graph inbox messageRule resource.
type MessageRule struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// listResponse is Graph's standard collection envelope.
type listResponse[T any] struct {
	Value []T `json:"value"`
}

// moveRequest is the body of a message move call.
type moveRequest struct {
	DestinationID string `json:"destinationId"`
}
