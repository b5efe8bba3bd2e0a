package flow

// Intent is an outbound message independent of any provider wire format.
type Intent interface {
	intentKind() string
}

// PlainText is a text message.
type PlainText struct {
	Body string
}

// Option is a single selectable reply button.
type Option struct {
	ID    string
	Title string
}

// InteractiveChoice is a prompt with up to MaxOptions reply buttons.
type InteractiveChoice struct {
	Prompt  string
	Options []Option
}

// MaxOptions is the number of reply buttons the channel renders.
const MaxOptions = 3

// MediaKind is one of the media keywords a user can request.
type MediaKind string

const (
	MediaVideo    MediaKind = "video"
	MediaAudio    MediaKind = "audio"
	MediaImage    MediaKind = "image"
	MediaDocument MediaKind = "document"
)

// Media is a hosted media file.
type Media struct {
	Kind     MediaKind
	URL      string
	Caption  string
	Filename string
}

// ContactCard shares the dealership contact.
type ContactCard struct {
	Contact Contact
}

// Contact holds the fields of a shared contact card.
type Contact struct {
	FormattedName string
	FirstName     string
	LastName      string
	Company       string
	Department    string
	Title         string
	Email         string
	Phone         string
	URL           string
}

// Location is a map pin.
type Location struct {
	Latitude  float64
	Longitude float64
	Name      string
	Address   string
}

func (PlainText) intentKind() string         { return "text" }
func (InteractiveChoice) intentKind() string { return "interactive" }
func (Media) intentKind() string             { return "media" }
func (ContactCard) intentKind() string       { return "contacts" }
func (Location) intentKind() string          { return "location" }

// IntentKind returns a short label for logs and metrics.
func IntentKind(i Intent) string {
	if i == nil {
		return ""
	}
	return i.intentKind()
}
