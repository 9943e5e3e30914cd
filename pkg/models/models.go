package models

import (
	"net/url"
	"strings"
	"time"
)

// Unfilled marks an assignment cell with no volunteer
const Unfilled = "__"

// Assignment types
const (
	Proposed = "Proposed"
	Backup   = "Backup"
)

// Grid roles
const (
	RoleCaptain       = "Precinct Captain"
	RoleEquipmentDrop = "Equipment Drop Off"
	RoleEquipmentPick = "Equipment Pick Up"
	RoleOpener        = "Opener"
	RoleCloser        = "Closer"
	RoleGreeter1      = "Ballot Greeter 1"
	RoleGreeter2      = "Ballot Greeter 2"
)

// MatchType names the resolver strategy that produced a precinct match
type MatchType string

const (
	MatchAlias        MatchType = "alias"
	MatchExact        MatchType = "exact"
	MatchSubstring    MatchType = "substring"
	MatchWord         MatchType = "word_match"
	MatchPollingFuzzy MatchType = "polling_place_fuzzy"
	MatchAddressFuzzy MatchType = "address_fuzzy"
	MatchNone         MatchType = "no_match"
)

// SignupRecord is one raw row from a signup export
type SignupRecord struct {
	EventGroup string    `json:"sign_up"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Location   string    `json:"location"`
	Item       string    `json:"item"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	SignupAt   time.Time `json:"sign_up_timestamp"`
	SourceFile string    `json:"source_file"`
}

// VolunteerRecord is one row of the persisted volunteer roster
type VolunteerRecord struct {
	Key         string    `json:"volunteer_key"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	PastCount   int       `json:"past_volunteer_count"`
	FirstSignup time.Time `json:"first_signup_date"`
	LastSignup  time.Time `json:"last_signup_date"`
}

// DisplayName returns "First Last"
func (v VolunteerRecord) DisplayName() string {
	return v.FirstName + " " + v.LastName
}

// PrecinctEntry is one row of the static precinct roster
type PrecinctEntry struct {
	Number       string `json:"number"`
	Name         string `json:"name"`
	District     string `json:"district"`
	Display      string `json:"display"`
	PollingPlace string `json:"polling_place"`
	Address      string `json:"address"`
}

// MapsURL links to the polling place address, empty when no address is known
func (p PrecinctEntry) MapsURL() string {
	return MapsURL(p.Address)
}

// pathQuote turns query escaping into path escaping that keeps slashes
var pathQuote = strings.NewReplacer("+", "%20", "%2F", "/")

// MapsURL builds a map link for a street address
func MapsURL(address string) string {
	if address == "" {
		return ""
	}
	return "https://www.google.com/maps/place/" + pathQuote.Replace(url.QueryEscape(address))
}

// PrecinctMatch is the outcome of resolving a free-text location.
// Fuzzy strategies fill the polling place metadata and score.
type PrecinctMatch struct {
	Display      string    `json:"precinct_display"`
	PollingPlace string    `json:"polling_place,omitempty"`
	Address      string    `json:"address,omitempty"`
	MapsURL      string    `json:"maps_url,omitempty"`
	MatchType    MatchType `json:"match_type"`
	Score        int       `json:"match_score,omitempty"`
}

// AssignmentSlot is one cell of the assignment grid
type AssignmentSlot struct {
	ElectionDate   string `json:"election_date"`
	AssignmentType string `json:"assignment_type"`
	District       string `json:"district"`
	Precinct       string `json:"precinct"`
	PollingPlace   string `json:"polling_place"`
	Address        string `json:"address"`
	MapsURL        string `json:"maps_url"`
	SlotTime       string `json:"slot_time"`
	Role           string `json:"role"`
	VolunteerKey   string `json:"volunteer_key"`
	VolunteerName  string `json:"volunteer_name"`
	PastCount      int    `json:"past_count"`
	LastSignupDate string `json:"last_signup_date"`
}

// Filled reports whether a volunteer occupies the cell
func (a AssignmentSlot) Filled() bool {
	return a.VolunteerKey != Unfilled && a.VolunteerKey != ""
}

// ManualAssignment is an operator-curated assignment that survives reprocessing
type ManualAssignment struct {
	District       string `json:"district"`
	Precinct       string `json:"precinct"`
	Role           string `json:"role"`
	VolunteerKey   string `json:"volunteer_key"`
	AssignmentType string `json:"assignment_type,omitempty"`
}

// ConflictReason explains why signups for a slot group were not all placed
type ConflictReason struct {
	District string   `json:"district"`
	Precinct string   `json:"precinct"`
	SlotTime string   `json:"slot_time"`
	Dropped  []string `json:"dropped"`
	Reasons  []string `json:"reasons"`
}

// LocationCount is an unresolved location and how often it occurred
type LocationCount struct {
	Location string `json:"location"`
	Count    int    `json:"count"`
}
