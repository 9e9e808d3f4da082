package label

// raw prediction code from the classification service
const (
	HalfRipened  = "half_ripened"
	FullyRipened = "fully_ripened"
	Green        = "green"
)

var displayNames = map[string]string{
	HalfRipened:  "Half ripened",
	FullyRipened: "Fully ripened",
	Green:        "Green",
}

// Translate map raw code to display label, unknown code returned unchanged
func Translate(raw string) string {
	if name, ok := displayNames[raw]; ok {
		return name
	}
	return raw
}
