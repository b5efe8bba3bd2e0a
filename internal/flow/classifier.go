package flow

import "strings"

// Route is the branch an inbound event takes through the dispatcher.
type Route int

const (
	RouteIgnore Route = iota
	RouteWelcome
	RouteMedia
	RouteSaleStep
	RouteAppointmentStep
	RouteAssistantStep
	RouteFallback
	RouteMenuSelection
)

func (r Route) String() string {
	switch r {
	case RouteWelcome:
		return "welcome"
	case RouteMedia:
		return "media"
	case RouteSaleStep:
		return "sale_step"
	case RouteAppointmentStep:
		return "appointment_step"
	case RouteAssistantStep:
		return "assistant_step"
	case RouteFallback:
		return "fallback"
	case RouteMenuSelection:
		return "menu_selection"
	default:
		return "ignore"
	}
}

// Decision is the classifier output. Selector carries the media keyword or
// the normalized menu option, depending on the route.
type Decision struct {
	Route    Route
	Selector string
}

var mediaKeywords = map[string]MediaKind{
	string(MediaVideo):    MediaVideo,
	string(MediaAudio):    MediaAudio,
	string(MediaImage):    MediaImage,
	string(MediaDocument): MediaDocument,
}

// Normalize lowercases and trims user input for keyword matching.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Classify picks the route for an event given the user's current session.
// Greetings win over everything so a user can always get back to the menu.
func Classify(tables *Tables, event Event, session Session) Decision {
	switch ev := event.(type) {
	case TextEvent:
		text := Normalize(ev.Body)
		switch {
		case tables.IsGreeting(text):
			return Decision{Route: RouteWelcome}
		case isMediaKeyword(text):
			return Decision{Route: RouteMedia, Selector: text}
		case session.Kind == KindSale:
			return Decision{Route: RouteSaleStep}
		case session.Kind == KindAppointment:
			return Decision{Route: RouteAppointmentStep}
		case session.Kind == KindAssistant:
			return Decision{Route: RouteAssistantStep}
		default:
			return Decision{Route: RouteFallback}
		}
	case InteractiveEvent:
		option := ev.OptionID
		if strings.TrimSpace(option) == "" {
			option = ev.Title
		}
		return Decision{Route: RouteMenuSelection, Selector: Normalize(option)}
	default:
		return Decision{Route: RouteIgnore}
	}
}

func isMediaKeyword(text string) bool {
	_, ok := mediaKeywords[text]
	return ok
}
