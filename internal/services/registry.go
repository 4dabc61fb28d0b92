package services

import "strings"

// Agency describes one trusted certification authority.
type Agency struct {
	Key         string `json:"key"`
	FullName    string `json:"full_name"`
	Website     string `json:"website"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// agencyRegistry is the trusted-agency table. It is an ordered slice, not a
// map: partial matches can be ambiguous for short keys ("OK" substring-matches
// a lot), and the first entry in declaration order wins the tie.
var agencyRegistry = []Agency{
	{
		Key:         "OU",
		FullName:    "Orthodox Union",
		Website:     "https://oukosher.org/product-search/",
		Icon:        "✅",
		Description: "La agencia certificadora más grande y reconocida mundialmente.",
	},
	{
		Key:         "OK",
		FullName:    "OK Kosher Certification",
		Website:     "https://www.ok.org/consumers/kosher-food-guide/",
		Icon:        "✅",
		Description: "Certificadora global altamente respetada.",
	},
	{
		Key:         "STAR-K",
		FullName:    "Star-K Kosher Certification",
		Website:     "https://www.star-k.org/products",
		Icon:        "✅",
		Description: "Conocida por sus altos estándares tecnológicos y halájicos.",
	},
	{
		Key:         "CRC",
		FullName:    "Chicago Rabbinical Council",
		Website:     "https://crcweb.org/kosher/consumer/symbol_search",
		Icon:        "✅",
		Description: "Consejo Rabínico de Chicago.",
	},
	{
		Key:         "KOF-K",
		FullName:    "Kof-K Kosher Supervision",
		Website:     "https://www.kof-k.org/Industrial/KosherCertificates.aspx",
		Icon:        "✅",
		Description: "Agencia internacional con sede en NJ.",
	},
	{
		Key:         "KMD",
		FullName:    "Kosher Maguén David (México)",
		Website:     "https://kosher.com.mx/",
		Icon:        "🇲🇽",
		Description: "Principal certificación de la Comunidad Maguén David en México.",
	},
	{
		Key:         "ALEF",
		FullName:    "Alef / One Kosher",
		Website:     "https://onekosher.com/",
		Icon:        "🇲🇽",
		Description: "Agencia de certificación con fuerte presencia en México y Latam.",
	},
	{
		Key:         "KA",
		FullName:    "Kashrut Authority (Australia)",
		Website:     "https://www.ka.org.au/",
		Icon:        "🇦🇺",
		Description: "Autoridad principal en Australia.",
	},
	{
		Key:         "KF",
		FullName:    "Federation of Synagogues (UK)",
		Website:     "https://www.kfkosher.org/",
		Icon:        "🇬🇧",
		Description: "Certificación prominente en Reino Unido y Europa.",
	},
}

// LookupAgency resolves a detected certification mark against the trusted
// registry: exact key match first, then partial match ("OU Pareve" resolves
// through its "OU" key, a spelled-out name resolves through the full name).
// Pure and synchronous; a miss returns (zero, false), never an error.
func LookupAgency(symbolName string) (Agency, bool) {
	symbolUpper := strings.ToUpper(strings.TrimSpace(symbolName))
	if symbolUpper == "" {
		return Agency{}, false
	}

	for _, a := range agencyRegistry {
		if a.Key == symbolUpper {
			return a, true
		}
	}

	normalized := strings.TrimSpace(strings.ReplaceAll(symbolUpper, "THE", ""))
	for _, a := range agencyRegistry {
		if strings.Contains(symbolUpper, a.Key) ||
			(normalized != "" && strings.Contains(strings.ToUpper(a.FullName), normalized)) {
			return a, true
		}
	}

	return Agency{}, false
}

// Agencies returns the full registry, for UI display.
func Agencies() []Agency {
	out := make([]Agency, len(agencyRegistry))
	copy(out, agencyRegistry)
	return out
}
