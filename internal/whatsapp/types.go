package whatsapp

// WebhookEvent is the top-level structure received from the WhatsApp
// Business Platform webhook.
type WebhookEvent struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry represents a single business account entry in the webhook payload.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change wraps the changed field and its value.
type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

// Value carries the messages, contacts and statuses of a change.
type Value struct {
	MessagingProduct string           `json:"messaging_product"`
	Metadata         Metadata         `json:"metadata"`
	Contacts         []WebhookContact `json:"contacts,omitempty"`
	Messages         []Message        `json:"messages,omitempty"`
	Statuses         []Status         `json:"statuses,omitempty"`
}

// Metadata identifies the receiving business number.
type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// WebhookContact is the sender profile attached to inbound messages.
type WebhookContact struct {
	Profile Profile `json:"profile"`
	WaID    string  `json:"wa_id"`
}

// Profile holds the sender's display name.
type Profile struct {
	Name string `json:"name"`
}

// Message is a single inbound message.
type Message struct {
	From        string       `json:"from"`
	ID          string       `json:"id"`
	Timestamp   string       `json:"timestamp"`
	Type        string       `json:"type"`
	Text        *TextBody    `json:"text,omitempty"`
	Interactive *Interactive `json:"interactive,omitempty"`
	Button      *QuickReply  `json:"button,omitempty"`
}

// TextBody is the content of a text message.
type TextBody struct {
	Body string `json:"body"`
}

// Interactive is a reply to an interactive message.
type Interactive struct {
	Type        string `json:"type"`
	ButtonReply *Reply `json:"button_reply,omitempty"`
	ListReply   *Reply `json:"list_reply,omitempty"`
}

// Reply is the selected button or list row.
type Reply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// QuickReply is a tap on a template quick-reply button.
type QuickReply struct {
	Payload string `json:"payload"`
	Text    string `json:"text"`
}

// Status is a delivery receipt. Receipts are acknowledged and dropped.
type Status struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RecipientID string `json:"recipient_id"`
}

// SendRequest is the payload posted to the Cloud API messages endpoint.
type SendRequest struct {
	MessagingProduct string              `json:"messaging_product"`
	RecipientType    string              `json:"recipient_type,omitempty"`
	To               string              `json:"to,omitempty"`
	Type             string              `json:"type,omitempty"`
	Text             *TextBody           `json:"text,omitempty"`
	Interactive      *InteractiveMessage `json:"interactive,omitempty"`
	Image            *MediaObject        `json:"image,omitempty"`
	Audio            *MediaObject        `json:"audio,omitempty"`
	Video            *MediaObject        `json:"video,omitempty"`
	Document         *MediaObject        `json:"document,omitempty"`
	Contacts         []ContactMessage    `json:"contacts,omitempty"`
	Location         *LocationMessage    `json:"location,omitempty"`
	Status           string              `json:"status,omitempty"`
	MessageID        string              `json:"message_id,omitempty"`
}

// InteractiveMessage is an outbound reply-button message.
type InteractiveMessage struct {
	Type   string            `json:"type"`
	Body   InteractiveBody   `json:"body"`
	Action InteractiveAction `json:"action"`
}

// InteractiveBody is the prompt text of an interactive message.
type InteractiveBody struct {
	Text string `json:"text"`
}

// InteractiveAction holds the reply buttons.
type InteractiveAction struct {
	Buttons []Button `json:"buttons"`
}

// Button is a reply button.
type Button struct {
	Type  string `json:"type"`
	Reply Reply  `json:"reply"`
}

// MediaObject references hosted media by link.
type MediaObject struct {
	Link     string `json:"link"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// ContactMessage is a shared contact card.
type ContactMessage struct {
	Emails []ContactEmail `json:"emails,omitempty"`
	Name   ContactName    `json:"name"`
	Org    *ContactOrg    `json:"org,omitempty"`
	Phones []ContactPhone `json:"phones,omitempty"`
	URLs   []ContactURL   `json:"urls,omitempty"`
}

type ContactEmail struct {
	Email string `json:"email"`
	Type  string `json:"type"`
}

type ContactName struct {
	FormattedName string `json:"formatted_name"`
	FirstName     string `json:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty"`
}

type ContactOrg struct {
	Company    string `json:"company,omitempty"`
	Department string `json:"department,omitempty"`
	Title      string `json:"title,omitempty"`
}

type ContactPhone struct {
	Phone string `json:"phone"`
	Type  string `json:"type"`
}

type ContactURL struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// LocationMessage is a map pin.
type LocationMessage struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
}

// SendResponse is the response from the Cloud API after sending a message
// or marking one read.
type SendResponse struct {
	MessagingProduct string            `json:"messaging_product,omitempty"`
	Contacts         []ResponseContact `json:"contacts,omitempty"`
	Messages         []ResponseMessage `json:"messages,omitempty"`
	Success          bool              `json:"success,omitempty"`
	Error            *SendError        `json:"error,omitempty"`
}

type ResponseContact struct {
	Input string `json:"input"`
	WaID  string `json:"wa_id"`
}

type ResponseMessage struct {
	ID string `json:"id"`
}

// SendError represents an error returned by the Graph API.
type SendError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode,omitempty"`
	FBTraceID    string `json:"fbtrace_id"`
}
