package flow

// Menu option identifiers carried by interactive replies.
const (
	OptionSell     = "option_sell"
	OptionConsult  = "option_consult"
	OptionVisit    = "option_visit"
	OptionContact  = "option_contact"
	OptionNoThanks = "option_no_thanks"
)

// Copy is every fixed text the dispatcher sends.
type Copy struct {
	Welcome          string // formatted with the user's first name
	MainMenuPrompt   string
	Fallback         string
	InvalidOption    string
	ContactInfo      string
	NoThanks         string
	AskSaleIntent    string
	AskQuestion      string
	AskName          string
	AskCarType       string
	AskVisitType     string
	AskPreferredDate string
	AppointmentDone  string // formatted with name, visitType, carType, preferredDate
	LocationNotice   string
	AppointmentStart string
	FlowError        string
	SaleIntentRetry  string
	AskVehicle       string
	VehicleRetry     string
	SaleDone         string // formatted with the vehicle
	FollowUpPrompt   string
	AnswerFailed     string
	SinkFailed       string
}

// MediaAsset is a hosted file returned for a media keyword.
type MediaAsset struct {
	URL      string
	Caption  string
	Filename string
}

// Tables holds the static copy, menus, media and dealership data. It is
// built once at startup and only exposed through read accessors.
type Tables struct {
	copy       Copy
	greetings  map[string]struct{}
	mainMenu   []Option
	followUp   []Option
	media      map[MediaKind]MediaAsset
	contact    Contact
	location   Location
	defaultTab string
}

// DefaultTables returns the PremiumCar dealership tables.
func DefaultTables() *Tables {
	return &Tables{
		copy: Copy{
			Welcome:          "Hola %s, Bienvenido a PremiumCar, tu espacio para comprar y vender autos.",
			MainMenuPrompt:   "¿En qué puedo ayudarte hoy?",
			Fallback:         "Por favor, selecciona una opción del menú para comenzar. Si necesitas ayuda, estoy aquí para asistirte. 🚗",
			InvalidOption:    "Opción no válida. Por favor, elige una opción del menú.",
			ContactInfo:      "Si necesitas más información o asistencia, por favor contáctanos directamente.",
			NoThanks:         "¡Gracias por tu interés! Si necesitas algo más, no dudes en preguntar. 🚗",
			AskSaleIntent:    "¿Quieres *vender* o *comprar* un auto?",
			AskQuestion:      "¿Cuál es tu consulta?",
			AskName:          "Perfecto, iniciemos el proceso. ¿Podrías indicarme tu nombre completo, por favor?",
			AskCarType:       "Gracias, ¿Qué tipo de vehículo te interesa? (SUV, sedán, camioneta, etc.)",
			AskVisitType:     "¿Deseas agendar una visita al concesionario o prefieres una cotización en línea?",
			AskPreferredDate: "¿Qué día te gustaría agendar la cita o recibir la información?",
			AppointmentDone: "Gracias por tu interés, %s.\n\n" +
				"📌 Hemos registrado tu solicitud de *%s* para un *%s* el día *%s*.\n\n" +
				"🧑‍💼 Nos pondremos en contacto contigo muy pronto.\n\n" +
				"Si tienes alguna otra pregunta, no dudes en escribirnos. 🚗",
			LocationNotice:   "\n\n📍 Te enviamos la ubicación en caso de que sea necesario.",
			AppointmentStart: "Parece que aún no has iniciado una solicitud. Por favor selecciona *\"Cotiza y visita\"* en el menú principal.",
			FlowError:        "Ha ocurrido un error en el flujo. Reinicia el proceso por favor.",
			SaleIntentRetry:  "Por favor, responde con \"comprar\" o \"vender\".",
			AskVehicle:       "¿Qué auto deseas vender o comprar? Por favor, indícalo con marca y modelo.",
			VehicleRetry:     "Por favor, indícanos la marca y modelo del auto que deseas vender o comprar. Ejemplo: \"Toyota Corolla 2018\".",
			SaleDone:         "¡Perfecto! Para continuar con la revisión del auto \"%s\", te comparto la ubicación de nuestro concesionario.",
			FollowUpPrompt:   "¿Necesitas algo más?",
			AnswerFailed:     "Lo siento, no pude responder tu consulta en este momento. Un asesor te escribirá pronto.",
			SinkFailed:       "No pudimos registrar tu solicitud en este momento. Un asesor te contactará pronto.",
		},
		greetings: map[string]struct{}{
			"hola":          {},
			"hello":         {},
			"hi":            {},
			"buenas tardes": {},
		},
		mainMenu: []Option{
			{ID: OptionSell, Title: "Comprar y Vender"},
			{ID: OptionConsult, Title: "Consultar"},
			{ID: OptionVisit, Title: "Cotiza y visita"},
		},
		followUp: []Option{
			{ID: OptionContact, Title: "Más Información"},
			{ID: OptionNoThanks, Title: "No, gracias"},
		},
		media: map[MediaKind]MediaAsset{
			MediaAudio: {
				URL:     "https://s3.amazonaws.com/gndx.dev/medpet-audio.aac",
				Caption: "Bienvenido 🔉",
			},
			MediaImage: {
				URL:     "https://s3.amazonaws.com/gndx.dev/medpet-imagen.png",
				Caption: "¡Esta es una imagen! 🏞️",
			},
			MediaVideo: {
				URL:     "https://s3.amazonaws.com/gndx.dev/medpet-video.mp4",
				Caption: "¡Este es un video! 🎥",
			},
			MediaDocument: {
				URL:      "https://s3.amazonaws.com/gndx.dev/medpet-file.pdf",
				Caption:  "¡Este es un PDF! 📄",
				Filename: "premiumcar.pdf",
			},
		},
		contact: Contact{
			FormattedName: "PremiumCar",
			FirstName:     "Premium",
			LastName:      "Car",
			Company:       "PremiumCar",
			Department:    "Atención al Cliente",
			Title:         "Asesor de Ventas",
			Email:         "lindooscar635@gmail.com",
			Phone:         "+593998564165",
			URL:           "https://www.tiktok.com/@premiumcar33?is_from_webapp=1&sender_device=pc",
		},
		location: Location{
			Latitude:  -0.22985,
			Longitude: -78.52495,
			Name:      "PremiumCar Concesionario",
			Address:   "Av. Amazonas N34-123, Ambato, Ecuador",
		},
		defaultTab: "Citas",
	}
}

// WithAppointmentSheet returns a copy of the tables that records
// appointments under sheet instead of the default.
func (t *Tables) WithAppointmentSheet(sheet string) *Tables {
	if sheet == "" {
		return t
	}
	out := *t
	out.defaultTab = sheet
	return &out
}

// Copy returns the fixed texts.
func (t *Tables) Copy() Copy { return t.copy }

// IsGreeting reports whether a normalized text is a greeting.
func (t *Tables) IsGreeting(normalized string) bool {
	_, ok := t.greetings[normalized]
	return ok
}

// MainMenu returns the welcome menu.
func (t *Tables) MainMenu() InteractiveChoice {
	return InteractiveChoice{Prompt: t.copy.MainMenuPrompt, Options: append([]Option(nil), t.mainMenu...)}
}

// FollowUpMenu returns the menu sent after an assistant answer.
func (t *Tables) FollowUpMenu() InteractiveChoice {
	return InteractiveChoice{Prompt: t.copy.FollowUpPrompt, Options: append([]Option(nil), t.followUp...)}
}

// Media looks up the asset for a media keyword.
func (t *Tables) Media(kind MediaKind) (MediaAsset, bool) {
	asset, ok := t.media[kind]
	return asset, ok
}

// Contact returns the dealership contact card.
func (t *Tables) Contact() Contact { return t.contact }

// Location returns the dealership location.
func (t *Tables) Location() Location { return t.location }

// AppointmentSheet is the destination for completed appointments.
func (t *Tables) AppointmentSheet() string { return t.defaultTab }

// SaleSheet is the destination for a completed sale lead.
func SaleSheet(intent string) string {
	if intent == IntentBuy {
		return "AutoCompra"
	}
	return "AutoVenta"
}
