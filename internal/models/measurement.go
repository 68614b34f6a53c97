package models

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"time"
)

// Measurement is one water-quality sample taken at a station.
type Measurement struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	StationName     string    `gorm:"column:station_name;type:text;not null;index" json:"station_name"`
	Date            time.Time `gorm:"column:date;not null" json:"date"`
	PH              float64   `gorm:"column:ph;type:double precision;not null" json:"ph"`
	Turbidity       float64   `gorm:"column:turbidity;type:double precision;not null" json:"turbidity"`
	DissolvedOxygen float64   `gorm:"column:dissolved_oxygen;type:double precision;not null" json:"dissolved_oxygen"`
	Temperature     float64   `gorm:"column:temperature;type:double precision;not null" json:"temperature"`
	Conductivity    float64   `gorm:"column:conductivity;type:double precision;not null" json:"conductivity"`
}

func (Measurement) TableName() string {
	return "measurements"
}

// MeasurementAttributes is a measurement without its id, used where the id is
// already the key of the response.
type MeasurementAttributes struct {
	StationName     string    `json:"station_name"`
	Date            time.Time `json:"date"`
	PH              float64   `json:"ph"`
	Turbidity       float64   `json:"turbidity"`
	DissolvedOxygen float64   `json:"dissolved_oxygen"`
	Temperature     float64   `json:"temperature"`
	Conductivity    float64   `json:"conductivity"`
}

func (m Measurement) Attributes() MeasurementAttributes {
	return MeasurementAttributes{
		StationName:     m.StationName,
		Date:            m.Date,
		PH:              m.PH,
		Turbidity:       m.Turbidity,
		DissolvedOxygen: m.DissolvedOxygen,
		Temperature:     m.Temperature,
		Conductivity:    m.Conductivity,
	}
}

// MeasurementInput is one item of a create batch. Nil means the key was
// absent or null in the request body.
type MeasurementInput struct {
	StationName     *string  `json:"station_name"`
	PH              *float64 `json:"ph"`
	Turbidity       *float64 `json:"turbidity"`
	DissolvedOxygen *float64 `json:"dissolved_oxygen"`
	Temperature     *float64 `json:"temperature"`
	Conductivity    *float64 `json:"conductivity"`
}

// MissingFields lists the required keys absent from the input, in request order.
func (in MeasurementInput) MissingFields() []string {
	var missing []string
	if in.StationName == nil {
		missing = append(missing, "station_name")
	}
	if in.PH == nil {
		missing = append(missing, "ph")
	}
	if in.Turbidity == nil {
		missing = append(missing, "turbidity")
	}
	if in.DissolvedOxygen == nil {
		missing = append(missing, "dissolved_oxygen")
	}
	if in.Temperature == nil {
		missing = append(missing, "temperature")
	}
	if in.Conductivity == nil {
		missing = append(missing, "conductivity")
	}
	return missing
}

// ToMeasurement must only be called once MissingFields is empty.
func (in MeasurementInput) ToMeasurement(date time.Time) Measurement {
	return Measurement{
		StationName:     *in.StationName,
		Date:            date,
		PH:              *in.PH,
		Turbidity:       *in.Turbidity,
		DissolvedOxygen: *in.DissolvedOxygen,
		Temperature:     *in.Temperature,
		Conductivity:    *in.Conductivity,
	}
}

// MeasurementPatch is a partial update. ID is only used by batch updates.
type MeasurementPatch struct {
	ID              *int64   `json:"id,omitempty"`
	StationName     *string  `json:"station_name,omitempty"`
	PH              *float64 `json:"ph,omitempty"`
	Turbidity       *float64 `json:"turbidity,omitempty"`
	DissolvedOxygen *float64 `json:"dissolved_oxygen,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	Conductivity    *float64 `json:"conductivity,omitempty"`
}

// Apply returns current with every provided field replaced and the date set.
// The id of current is never changed.
func (p MeasurementPatch) Apply(current Measurement, date time.Time) Measurement {
	next := current
	if p.StationName != nil {
		next.StationName = *p.StationName
	}
	if p.PH != nil {
		next.PH = *p.PH
	}
	if p.Turbidity != nil {
		next.Turbidity = *p.Turbidity
	}
	if p.DissolvedOxygen != nil {
		next.DissolvedOxygen = *p.DissolvedOxygen
	}
	if p.Temperature != nil {
		next.Temperature = *p.Temperature
	}
	if p.Conductivity != nil {
		next.Conductivity = *p.Conductivity
	}
	next.Date = date
	return next
}

// MeasurementIndex encodes as a JSON object keyed by id, in ascending id order.
type MeasurementIndex []Measurement

func (idx MeasurementIndex) MarshalJSON() ([]byte, error) {
	sorted := make([]Measurement, len(idx))
	copy(sorted, idx)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range sorted {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(`"` + strconv.FormatInt(m.ID, 10) + `":`)
		attrs, err := json.Marshal(m.Attributes())
		if err != nil {
			return nil, err
		}
		buf.Write(attrs)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
