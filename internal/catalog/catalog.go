// Package catalog holds the fixed service enumeration. The three services
// are a product constant, not store data.
package catalog

const (
	ServiceDog     = "hund"
	ServiceKids    = "barn"
	ServiceErrands = "arenden"
)

type Service struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Examples []string `json:"examples"`
}

var services = []Service{
	{
		ID:       ServiceDog,
		Title:    "Boka hundpassning",
		Examples: []string{"Rasta hunden efter skolan", "Leka och ge sällskap", "Kvällspromenader"},
	},
	{
		ID:       ServiceKids,
		Title:    "Boka barnpassning",
		Examples: []string{"Passa barn kvällstid eller helg", "Hjälpa till med läxor", "Leka och hålla sällskap hemma"},
	},
	{
		ID:       ServiceErrands,
		Title:    "Boka hjälp med ärenden",
		Examples: []string{"Handla matvaror", "Hämta paket", "Lämna saker till återvinning"},
	},
}

func All() []Service {
	out := make([]Service, len(services))
	copy(out, services)
	return out
}

func IsValid(id string) bool {
	for _, s := range services {
		if s.ID == id {
			return true
		}
	}
	return false
}
