package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// User is the authenticated account (a pet's tutor).
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// Tokens is the credential pair returned by the login endpoint.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// LoginCredentials is the login request body.
type LoginCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterData is the registration request body.
type RegisterData struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// ThoughtsResult is returned when the server generates thoughts of the day.
type ThoughtsResult struct {
	Message string            `json:"message"`
	Details []json.RawMessage `json:"details"`
}

// ID identifies an animal. The API may send it as a number or a string.
type ID string

// UnmarshalJSON accepts both 42 and "42".
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("animal id must be a string or a number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Species is one of the kinds of animal the API accepts.
type Species string

const (
	Dog     Species = "dog"
	Cat     Species = "cat"
	Bird    Species = "bird"
	Rabbit  Species = "rabbit"
	Hamster Species = "hamster"
	Fish    Species = "fish"
	Reptile Species = "reptile"
	Horse   Species = "horse"
	Other   Species = "other"
)

// AllSpecies lists every species in display order.
var AllSpecies = []Species{Dog, Cat, Bird, Rabbit, Hamster, Fish, Reptile, Horse, Other}

var speciesEmoji = map[Species]string{
	Dog:     "🐕",
	Cat:     "🐱",
	Bird:    "🐦",
	Rabbit:  "🐰",
	Hamster: "🐹",
	Fish:    "🐠",
	Reptile: "🦎",
	Horse:   "🐴",
	Other:   "🐾",
}

// ParseSpecies normalizes s and checks it against the known species.
func ParseSpecies(s string) (Species, error) {
	sp := Species(strings.ToLower(strings.TrimSpace(s)))
	if !sp.Valid() {
		return "", fmt.Errorf("unknown species %q", s)
	}
	return sp, nil
}

// Valid reports whether s is a known species.
func (s Species) Valid() bool {
	_, ok := speciesEmoji[s]
	return ok
}

// Emoji returns the species' emoji, or a paw print for unknown values.
func (s Species) Emoji() string {
	if e, ok := speciesEmoji[s]; ok {
		return e
	}
	return speciesEmoji[Other]
}

// SpeciesStrings returns the species as plain strings, e.g. for validation.
func SpeciesStrings() []string {
	out := make([]string, len(AllSpecies))
	for i, s := range AllSpecies {
		out[i] = string(s)
	}
	return out
}

// Animal is a pet record.
type Animal struct {
	ID                 ID         `json:"id"`
	Tutor              int        `json:"tutor"`
	Name               string     `json:"name"`
	Species            Species    `json:"species"`
	Breed              *string    `json:"breed"`
	Age                *int       `json:"age"`
	Photo              *string    `json:"photo"`
	ThoughtOfTheDay    *string    `json:"thought_of_the_day"`
	ThoughtGeneratedAt *time.Time `json:"thought_generated_at"`
}

// Page is the paginated envelope returned by list endpoints.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// AnimalInput creates an animal. Photo, when set, switches the request to
// multipart/form-data.
type AnimalInput struct {
	Name    string    `json:"name"`
	Species Species   `json:"species"`
	Breed   string    `json:"breed,omitempty"`
	Age     *int      `json:"age,omitempty"`
	Photo   *FormFile `json:"-"`
}

// AnimalPatch updates the fields that are set.
type AnimalPatch struct {
	Name    *string   `json:"name,omitempty"`
	Species *Species  `json:"species,omitempty"`
	Breed   *string   `json:"breed,omitempty"`
	Age     *int      `json:"age,omitempty"`
	Photo   *FormFile `json:"-"`
}

// Empty reports whether the patch changes nothing.
func (p AnimalPatch) Empty() bool {
	return p.Name == nil && p.Species == nil && p.Breed == nil && p.Age == nil && p.Photo == nil
}
