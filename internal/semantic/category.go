package semantic

import "fmt"

// Category is the inferred meaning of a scalar field
type Category int

const (
	Unknown Category = iota
	FreeText
	Word
	Title
	Email
	Phone
	Name
	FirstName
	LastName
	Username
	Address
	Street
	City
	PostalCode
	Country
	Company
	URL
	IPAddress
	Date
	DateTime
	DateOfBirth
	UUID
	NationalID
	CreditCard
	Secret
	Integer
	Number
	Age
	Boolean
)

var categoryNames = map[Category]string{
	Unknown:     "unknown",
	FreeText:    "freeText",
	Word:        "word",
	Title:       "title",
	Email:       "email",
	Phone:       "phone",
	Name:        "name",
	FirstName:   "firstName",
	LastName:    "lastName",
	Username:    "username",
	Address:     "address",
	Street:      "street",
	City:        "city",
	PostalCode:  "postalCode",
	Country:     "country",
	Company:     "company",
	URL:         "url",
	IPAddress:   "ipAddress",
	Date:        "date",
	DateTime:    "dateTime",
	DateOfBirth: "dateOfBirth",
	UUID:        "uuid",
	NationalID:  "nationalId",
	CreditCard:  "creditCard",
	Secret:      "secret",
	Integer:     "integer",
	Number:      "number",
	Age:         "age",
	Boolean:     "boolean",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// MarshalText renders the category name in JSON output
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ParseCategory resolves a category by name
func ParseCategory(name string) (Category, error) {
	for c, n := range categoryNames {
		if n == name {
			return c, nil
		}
	}
	return Unknown, fmt.Errorf("unknown category: %s", name)
}

// All returns every category in declaration order
func All() []Category {
	out := make([]Category, 0, len(categoryNames))
	for c := Unknown; c <= Boolean; c++ {
		out = append(out, c)
	}
	return out
}

// Sensitive reports whether values of this category identify a person or
// are otherwise private
func (c Category) Sensitive() bool {
	switch c {
	case Email, Phone, Name, FirstName, LastName, Username, Address, Street,
		City, PostalCode, Country, Company, URL, IPAddress, DateOfBirth,
		NationalID, CreditCard, Secret, FreeText:
		return true
	default:
		return false
	}
}

// JSONType is the JSON scalar type produced for the category
func (c Category) JSONType() string {
	switch c {
	case Integer, Age:
		return "integer"
	case Number:
		return "number"
	case Boolean:
		return "boolean"
	default:
		return "string"
	}
}

// Compatible reports whether the category can satisfy a schema type.
// An empty or unknown schema type accepts everything.
func (c Category) Compatible(schemaType string) bool {
	switch schemaType {
	case "", "unknown":
		return true
	case "number":
		return c.JSONType() == "number" || c.JSONType() == "integer"
	default:
		return c.JSONType() == schemaType
	}
}
