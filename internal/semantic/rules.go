package semantic

import (
	"regexp"
	"strings"
	"unicode"
)

// KeyRule maps a key-name pattern to a category
type KeyRule struct {
	Pattern  *regexp.Regexp
	Category Category
}

// ShapeRule recognizes a category from a string value
type ShapeRule struct {
	Name     string
	Classify func(value string) (Category, bool)
}

// NewKeyRule compiles a key rule; patterns are case-insensitive unless they
// carry their own flags
func NewKeyRule(pattern string, category Category) (KeyRule, error) {
	if !strings.HasPrefix(pattern, "(?") {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return KeyRule{}, err
	}
	return KeyRule{Pattern: re, Category: category}, nil
}

func mustKeyRule(pattern string, category Category) KeyRule {
	rule, err := NewKeyRule(pattern, category)
	if err != nil {
		panic(err)
	}
	return rule
}

// DefaultKeyRules returns the built-in ordered key-name table. The first
// matching rule wins, so specific patterns precede general ones.
func DefaultKeyRules() []KeyRule {
	return []KeyRule{
		mustKeyRule(`e[-_]?mail|courriel`, Email),
		mustKeyRule(`first[-_]?name|^fname$|given[-_]?name|forename|prenom`, FirstName),
		mustKeyRule(`last[-_]?name|^lname$|surname|family[-_]?name`, LastName),
		mustKeyRule(`user[-_]?name|^login$|nickname|^handle$|pseudo`, Username),
		mustKeyRule(`(file|host|display|type|class|field|tag|node)[-_]?name`, Word),
		mustKeyRule(`company|organi[sz]ation|employer|entreprise|societe|business`, Company),
		mustKeyRule(`birth|^dob$|naissance`, DateOfBirth),
		mustKeyRule(`ssn|social[-_]?security|national[-_]?id|passport|tax[-_]?id|insee|^nir$`, NationalID),
		mustKeyRule(`card[-_]?(number|num|no)$|credit[-_]?card|^iban$|^pan$`, CreditCard),
		mustKeyRule(`password|passwd|^pwd$|secret|token|api[-_]?key`, Secret),
		mustKeyRule(`phone|mobile|^cell$|^fax$|^tel(ephone)?([-_]|$)|[-_]tel$|numero`, Phone),
		mustKeyRule(`^ip$|ip[-_]?addr|^ipv[46]$`, IPAddress),
		mustKeyRule(`street|address[-_]?line|^line[12]$|^rue$`, Street),
		mustKeyRule(`addr|adresse|residence`, Address),
		mustKeyRule(`city|ville|^town$|locality|localite|municipality`, City),
		mustKeyRule(`postal|post[-_]?code|zip`, PostalCode),
		mustKeyRule(`country|^pays$|nationality`, Country),
		mustKeyRule(`url|website|homepage|^link$|^lien$|^site$`, URL),
		mustKeyRule(`uuid|guid`, UUID),
		mustKeyRule(`name|^nom$|^nom[-_]`, Name),
		mustKeyRule(`description|comment|note|remark|^bio$|biography|^message$|feedback|observation`, FreeText),
		mustKeyRule(`title|subject|headline|^label$|^titre$|^sujet$`, Title),
		mustKeyRule(`date[-_]?time|timestamp|[-_]at$|^(created|updated|modified)(at|on)?$`, DateTime),
		mustKeyRule(`(?-i:[a-z]At$)`, DateTime),
		mustKeyRule(`(^|[-_])date|(?-i:[a-z]Date)|^day$|[-_]on$|^dt$`, Date),
		mustKeyRule(`^age$|[-_]age$|^age[-_]`, Age),
		mustKeyRule(`^(active|enabled|disabled|verified|visible|archived|deleted)$|(?-i:^(is|has|can|should|was)[A-Z_-])`, Boolean),
		mustKeyRule(`price|amount|cost|^rate$|[-_]rate$|percent|salary|balance|weight|height|latitude|longitude|^lat$|^lng$|^lon$`, Number),
		mustKeyRule(`count|quantity|^qty$|total|^num[-_]|number|^year$|^size$|^rank$|^level$|^score$|^id$|[-_]id$|(?-i:[a-z]Id$)`, Integer),
	}
}

var (
	emailShape    = regexp.MustCompile(`^[A-Za-z0-9._%+'\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
	emailInText   = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	uuidShape     = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	ssnShape      = regexp.MustCompile(`^\d{3}-\d{2}-\d{4}$`)
	nirShape      = regexp.MustCompile(`^[12] ?\d{2} ?\d{2} ?\d{2} ?\d{3} ?\d{3}( ?\d{2})?$`)
	cardShape     = regexp.MustCompile(`^\d{4}([ -]?\d{4}){3}$|^\d{13,19}$`)
	ipv4Shape     = regexp.MustCompile(`^(25[0-5]|2[0-4]\d|1?\d?\d)(\.(25[0-5]|2[0-4]\d|1?\d?\d)){3}$`)
	dateTimeShape = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}:?\d{2})?$`)
	dateShape     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$|^\d{2}/\d{2}/\d{4}$`)
	phoneShape    = regexp.MustCompile(`^\+?[\d\s().\-]{7,20}$`)
	phoneInText   = regexp.MustCompile(`\+?\d[\d .\-]{8,}\d`)
	urlShape      = regexp.MustCompile(`^(https?://|www\.)\S+$`)
	placeholder   = regexp.MustCompile(`^(?:@([A-Za-z_]+)|\{\{\s*([A-Za-z_]+)\s*\}\})$`)
)

// DefaultShapeRules returns the built-in ordered value-shape table
func DefaultShapeRules() []ShapeRule {
	return []ShapeRule{
		{Name: "email", Classify: match(emailShape, Email)},
		{Name: "uuid", Classify: match(uuidShape, UUID)},
		{Name: "national_id", Classify: func(s string) (Category, bool) {
			if ssnShape.MatchString(s) || nirShape.MatchString(s) {
				return NationalID, true
			}
			return Unknown, false
		}},
		{Name: "credit_card", Classify: func(s string) (Category, bool) {
			if cardShape.MatchString(s) && luhnValid(s) {
				return CreditCard, true
			}
			return Unknown, false
		}},
		{Name: "ip_address", Classify: match(ipv4Shape, IPAddress)},
		{Name: "date_time", Classify: match(dateTimeShape, DateTime)},
		{Name: "date", Classify: match(dateShape, Date)},
		{Name: "phone", Classify: func(s string) (Category, bool) {
			if looksLikePhone(s) {
				return Phone, true
			}
			return Unknown, false
		}},
		{Name: "url", Classify: match(urlShape, URL)},
		{Name: "free_text", Classify: func(s string) (Category, bool) {
			if strings.ContainsAny(s, " \t\n") && strings.IndexFunc(s, unicode.IsLetter) >= 0 && (emailInText.MatchString(s) || phoneInText.MatchString(s)) {
				return FreeText, true
			}
			return Unknown, false
		}},
	}
}

func match(re *regexp.Regexp, c Category) func(string) (Category, bool) {
	return func(s string) (Category, bool) {
		if re.MatchString(s) {
			return c, true
		}
		return Unknown, false
	}
}

func looksLikePhone(s string) bool {
	if !phoneShape.MatchString(s) {
		return false
	}
	digits := countDigits(s)
	if digits < 8 || digits > 15 {
		return false
	}
	if strings.HasPrefix(s, "+") || strings.ContainsAny(s, " ().-") {
		return true
	}
	return digits == 10 && strings.HasPrefix(s, "0")
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

func luhnValid(s string) bool {
	sum, double, digits := 0, false, 0
	for i := len(s) - 1; i >= 0; i-- {
		c := s[i]
		if c < '0' || c > '9' {
			continue
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
		digits++
	}
	return digits >= 13 && sum%10 == 0
}

var placeholderAliases = map[string]Category{
	"text":      FreeText,
	"sentence":  Title,
	"paragraph": FreeText,
	"fullname":  Name,
	"zip":       PostalCode,
	"zipcode":   PostalCode,
	"postcode":  PostalCode,
	"ssn":       NationalID,
	"ip":        IPAddress,
	"int":       Integer,
	"float":     Number,
	"bool":      Boolean,
	"password":  Secret,
	"tel":       Phone,
	"website":   URL,
	"dob":       DateOfBirth,
}

// PlaceholderCategory resolves explicit placeholders such as "@email" or "{{ phone }}"
func PlaceholderCategory(s string) (Category, bool) {
	m := placeholder.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Unknown, false
	}
	name := m[1]
	if name == "" {
		name = m[2]
	}
	norm := strings.ToLower(strings.ReplaceAll(name, "_", ""))
	if c, ok := placeholderAliases[norm]; ok {
		return c, true
	}
	for _, c := range All() {
		if strings.ToLower(c.String()) == norm {
			return c, true
		}
	}
	return Unknown, false
}

// FromFormat maps an OpenAPI/JSON-Schema string format to a category
func FromFormat(format string) (Category, bool) {
	switch strings.ToLower(format) {
	case "email", "idn-email":
		return Email, true
	case "date":
		return Date, true
	case "date-time":
		return DateTime, true
	case "uuid":
		return UUID, true
	case "uri", "url", "uri-reference", "iri":
		return URL, true
	case "ipv4", "ipv6":
		return IPAddress, true
	case "password":
		return Secret, true
	case "phone":
		return Phone, true
	default:
		return Unknown, false
	}
}
