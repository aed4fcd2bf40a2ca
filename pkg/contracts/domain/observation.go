package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// offsetDateLayouts carry their own UTC offset
var offsetDateLayouts = []string{
	time.RFC3339Nano,
}

// wallClockDateLayouts have no offset and are read in the survey time zone
var wallClockDateLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Visit identifies one surveyor visit to a client on a mission date.
// It is the grouping identity shared by price and quantity observations.
type Visit struct {
	MissionDate  time.Time
	RaisonSocial string
	Adresse      string
}

// PriceObservation is one price reading taken during a survey visit
type PriceObservation struct {
	Article      string    `json:"article" validate:"required"`
	Marque       string    `json:"marque"`
	Prix         float64   `json:"prix" validate:"gte=0"`
	Contenance   float64   `json:"contenance" validate:"gt=0"`
	MissionDate  time.Time `json:"missionDate" validate:"required"`
	RaisonSocial string    `json:"raisonSocial" validate:"required"`
	Adresse      string    `json:"adresse" validate:"required"`
}

// MissionVisit returns the visit the observation belongs to
func (o PriceObservation) MissionVisit() Visit {
	return Visit{MissionDate: o.MissionDate, RaisonSocial: o.RaisonSocial, Adresse: o.Adresse}
}

// ArticleName returns the surveyed article display name
func (o PriceObservation) ArticleName() string {
	return o.Article
}

// UnmarshalJSON decodes loosely typed backend payloads. Numbers may arrive as
// strings or null and mission dates in several layouts; a value that cannot be
// read decodes to its zero value instead of failing the whole record set.
// Dates without an offset are read as UTC, see DecodePriceObservations.
func (o *PriceObservation) UnmarshalJSON(data []byte) error {
	var w priceWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*o = w.observation(time.UTC)
	return nil
}

type priceWire struct {
	Article      string    `json:"article"`
	Marque       string    `json:"marque"`
	Prix         flexFloat `json:"prix"`
	Contenance   flexFloat `json:"contenance"`
	MissionDate  wireDate  `json:"missionDate"`
	RaisonSocial string    `json:"raisonSocial"`
	Adresse      string    `json:"adresse"`
}

func (w priceWire) observation(loc *time.Location) PriceObservation {
	return PriceObservation{
		Article:      w.Article,
		Marque:       w.Marque,
		Prix:         float64(w.Prix),
		Contenance:   float64(w.Contenance),
		MissionDate:  ParseMissionDateIn(string(w.MissionDate), loc),
		RaisonSocial: w.RaisonSocial,
		Adresse:      w.Adresse,
	}
}

// DecodePriceObservations decodes a backend price record set. Mission dates
// without an offset are wall-clock times in loc; a nil loc means UTC.
func DecodePriceObservations(data []byte, loc *time.Location) ([]PriceObservation, error) {
	var wires []priceWire
	if err := json.Unmarshal(data, &wires); err != nil {
		return nil, err
	}
	if wires == nil {
		return nil, nil
	}
	records := make([]PriceObservation, len(wires))
	for i, w := range wires {
		records[i] = w.observation(loc)
	}
	return records, nil
}

// QuantityObservation is one shelf quantity count taken during a survey visit
type QuantityObservation struct {
	Article      string    `json:"article" validate:"required"`
	Marque       string    `json:"marque"`
	Qte          float64   `json:"qte" validate:"gte=0"`
	Contenance   float64   `json:"contenance" validate:"gte=0"`
	MissionDate  time.Time `json:"missionDate" validate:"required"`
	RaisonSocial string    `json:"raisonSocial" validate:"required"`
	Adresse      string    `json:"adresse" validate:"required"`
	UserName     string    `json:"userName,omitempty"`
}

// MissionVisit returns the visit the observation belongs to
func (o QuantityObservation) MissionVisit() Visit {
	return Visit{MissionDate: o.MissionDate, RaisonSocial: o.RaisonSocial, Adresse: o.Adresse}
}

// ArticleName returns the surveyed article display name
func (o QuantityObservation) ArticleName() string {
	return o.Article
}

// UnmarshalJSON decodes loosely typed backend payloads, see PriceObservation.
func (o *QuantityObservation) UnmarshalJSON(data []byte) error {
	var w quantityWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*o = w.observation(time.UTC)
	return nil
}

type quantityWire struct {
	Article      string    `json:"article"`
	Marque       string    `json:"marque"`
	Qte          flexFloat `json:"qte"`
	Contenance   flexFloat `json:"contenance"`
	MissionDate  wireDate  `json:"missionDate"`
	RaisonSocial string    `json:"raisonSocial"`
	Adresse      string    `json:"adresse"`
	UserName     string    `json:"userName"`
}

func (w quantityWire) observation(loc *time.Location) QuantityObservation {
	return QuantityObservation{
		Article:      w.Article,
		Marque:       w.Marque,
		Qte:          float64(w.Qte),
		Contenance:   float64(w.Contenance),
		MissionDate:  ParseMissionDateIn(string(w.MissionDate), loc),
		RaisonSocial: w.RaisonSocial,
		Adresse:      w.Adresse,
		UserName:     w.UserName,
	}
}

// DecodeQuantityObservations decodes a backend quantity record set, see
// DecodePriceObservations.
func DecodeQuantityObservations(data []byte, loc *time.Location) ([]QuantityObservation, error) {
	var wires []quantityWire
	if err := json.Unmarshal(data, &wires); err != nil {
		return nil, err
	}
	if wires == nil {
		return nil, nil
	}
	records := make([]QuantityObservation, len(wires))
	for i, w := range wires {
		records[i] = w.observation(loc)
	}
	return records, nil
}

// flexFloat accepts a JSON number, a numeric string or null
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		*f = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	// Decimal commas show up in hand-typed capacities ("0,5").
	s = strings.Replace(s, ",", ".", 1)

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

// wireDate keeps the raw mission date text; anything but a JSON string is empty
type wireDate string

func (d *wireDate) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*d = ""
		return nil
	}
	*d = wireDate(s)
	return nil
}

// ParseMissionDate parses a backend mission date, reading dates without an
// offset as UTC. Unknown layouts yield the zero time, which downstream
// formatting renders as a placeholder.
func ParseMissionDate(s string) time.Time {
	return ParseMissionDateIn(s, time.UTC)
}

// ParseMissionDateIn is like ParseMissionDate but reads dates without an
// offset as wall-clock time in loc.
func ParseMissionDateIn(s string, loc *time.Location) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range offsetDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	for _, layout := range wallClockDateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}
