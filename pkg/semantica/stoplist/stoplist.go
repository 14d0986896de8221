package stoplist

import "sort"

// Manager holds a mutable stopword set
type Manager struct {
	stops map[string]struct{}
}

// NewManager creates a new stoplist manager
func NewManager(initialStops []string) *Manager {
	stops := make(map[string]struct{}, len(initialStops))
	for _, s := range initialStops {
		stops[s] = struct{}{}
	}
	return &Manager{stops: stops}
}

// NewSpanish returns a manager seeded with the Spanish list.
func NewSpanish() *Manager {
	return NewManager(Spanish())
}

// IsStop checks if a token is a stopword
func (m *Manager) IsStop(token string) bool {
	_, ok := m.stops[token]
	return ok
}

// Add adds a token to the stoplist
func (m *Manager) Add(token string) {
	m.stops[token] = struct{}{}
}

// Remove removes a token from the stoplist
func (m *Manager) Remove(token string) {
	delete(m.stops, token)
}

// All returns all stopwords, sorted
func (m *Manager) All() []string {
	result := make([]string, 0, len(m.stops))
	for s := range m.stops {
		result = append(result, s)
	}
	sort.Strings(result)
	return result
}

// Spanish returns the fixed Spanish stopword list. Entries are already folded
// (lowercase, no diacritics) so they compare directly against tokens.
// The tail of the list covers site boilerplate: cookie banners, legal
// notices, navigation and subscription prompts.
func Spanish() []string {
	out := make([]string, 0, len(grammatical)+len(boilerplate))
	out = append(out, grammatical...)
	out = append(out, boilerplate...)
	return out
}

var grammatical = []string{
	"de", "la", "que", "el", "en", "y", "a", "los", "del", "se", "las", "por", "un", "para", "con", "no", "una", "su", "al", "lo",
	"como", "mas", "pero", "sus", "le", "ya", "o", "este", "si", "porque", "esta", "entre", "cuando", "muy", "sin", "sobre", "tambien",
	"me", "hasta", "hay", "donde", "quien", "desde", "todo", "nos", "durante", "todos", "uno", "les", "ni", "contra", "otros", "ese",
	"eso", "ante", "ellos", "e", "esto", "mi", "antes", "algunos", "unos", "yo", "otro", "otras", "otra", "tanto", "esa",
	"estos", "mucho", "quienes", "nada", "muchos", "cual", "poco", "ella", "estar", "estas", "algunas", "algo", "nosotros",
	"mis", "tu", "te", "ti", "tus", "ellas", "nosotras", "vosotros", "vosotras", "os", "mio", "mia", "mios", "mias", "tuyo",
	"tuya", "tuyos", "tuyas", "suyo", "suya", "suyos", "suyas", "nuestro", "nuestra", "nuestros", "nuestras", "vuestro", "vuestra",
	"vuestros", "vuestras", "esos", "esas", "estoy", "estamos", "estais", "estan", "estes", "esteis", "esten",
	"estare", "estaras", "estara", "estaremos", "estareis", "estaran", "estaria", "estarias", "estariamos", "estariais", "estarian",
	"estaba", "estabas", "estabamos", "estabais", "estaban", "estuve", "estuviste", "estuvo", "estuvimos", "estuvisteis", "estuvieron",
	"estuviera", "estuvieras", "estuvieramos", "estuvierais", "estuvieran", "estuviese", "estuvieses", "estuviesemos", "estuvieseis",
	"estuviesen", "estando", "estado", "estada", "estados", "estadas", "estad", "he", "has", "ha", "hemos", "habeis", "han", "haya",
	"hayas", "hayamos", "hayais", "hayan", "habre", "habras", "habra", "habremos", "habreis", "habran", "habria", "habrias", "habriamos",
	"habriais", "habrian", "habia", "habias", "habiamos", "habiais", "habian", "hube", "hubiste", "hubo", "hubimos", "hubisteis",
	"hubieron", "hubiera", "hubieras", "hubieramos", "hubierais", "hubieran", "hubiese", "hubieses", "hubiesemos", "hubieseis",
	"hubiesen", "habiendo", "habido", "habida", "habidos", "habidas", "soy", "eres", "es", "somos", "sois", "son", "sea", "seas", "seamos",
	"seais", "sean", "sere", "seras", "sera", "seremos", "sereis", "seran", "seria", "serias", "seriamos", "seriais", "serian", "era", "eras",
	"eramos", "erais", "eran", "fui", "fuiste", "fue", "fuimos", "fuisteis", "fueron", "fuera", "fueras", "fueramos", "fuerais", "fueran",
	"fuese", "fueses", "fuesemos", "fueseis", "fuesen", "siendo", "sido", "tengo", "tienes", "tiene", "tenemos", "teneis", "tienen", "tenga",
	"tengas", "tengamos", "tengais", "tengan", "tendre", "tendras", "tendra", "tendremos", "tendreis", "tendran", "tendria", "tendrias",
	"tendriamos", "tendriais", "tendrian", "tenia", "tenias", "teniamos", "teniais", "tenian", "tuve", "tuviste", "tuvo", "tuvimos",
	"tuvisteis", "tuvieron", "tuviera", "tuvieras", "tuvieramos", "tuvierais", "tuvieran", "tuviese", "tuvieses", "tuviesemos",
	"tuvieseis", "tuviesen", "teniendo", "tenido", "tenida", "tenidos", "tenidas", "tener",
}

var boilerplate = []string{
	"cookies", "cookie", "aceptar", "acepta", "aceptas", "aceptamos", "acepto", "rechazar", "rechaza", "rechazo", "rechazamos",
	"consentimiento", "privacidad", "terminos", "aviso", "legal", "politica", "politicas", "licencia",
	"gdpr", "rgpd", "cierre", "cerrar", "configurar", "configuracion", "preferencias", "idioma", "inicio", "menu", "navegacion",
	"suscribete", "suscribirse", "suscripcion", "newsletter", "banner", "popup", "modal", "noticias", "contacto",
	"wikipedia", "editar", "edicion", "buscar", "barra", "pdf", "articulo", "articulos", "pagina", "paginas",
}
