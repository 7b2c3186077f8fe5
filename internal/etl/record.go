// Package etl loads the Sonoma County shelter intake export into the animals
// database. Each export row describes one intake of one animal, so a row
// produces an animals record and an animal_intake record.
package etl

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	AnimalsTable = "animals"
	IntakeTable  = "animal_intake"
)

var ErrMalformedRecord = errors.New("malformed record")

type Animal struct {
	ID          string
	Name        string
	Type        string
	Breed       string
	Color       string
	Sex         string
	Size        string
	DateOfBirth *time.Time
}

// Columns maps the animal onto animals table columns.
func (a Animal) Columns() map[string]any {
	return map[string]any{
		"id":            a.ID,
		"animal_name":   a.Name,
		"animal_type":   a.Type,
		"breed":         a.Breed,
		"color":         a.Color,
		"sex":           a.Sex,
		"animal_size":   a.Size,
		"date_of_birth": nullableTime(a.DateOfBirth),
	}
}

type Intake struct {
	ImpoundNumber       string
	KennelNumber        string
	AnimalID            string
	IntakeDate          *time.Time
	OutcomeDate         *time.Time
	DaysInShelter       int
	IntakeType          string
	IntakeSubtype       string
	OutcomeType         string
	OutcomeSubtype      string
	IntakeCondition     string
	OutcomeCondition    string
	IntakeJurisdiction  string
	OutcomeJurisdiction string
	Location            string
	AnimalCount         int
	ZipCode             int
}

// Columns maps the intake onto animal_intake table columns.
func (i Intake) Columns() map[string]any {
	return map[string]any{
		"impound_number":       i.ImpoundNumber,
		"kennel_number":        i.KennelNumber,
		"animal_id":            i.AnimalID,
		"intake_date":          nullableTime(i.IntakeDate),
		"outcome_date":         nullableTime(i.OutcomeDate),
		"days_in_shelter":      i.DaysInShelter,
		"intake_type":          i.IntakeType,
		"intake_subtype":       i.IntakeSubtype,
		"outcome_type":         i.OutcomeType,
		"outcome_subtype":      i.OutcomeSubtype,
		"intake_condition":     i.IntakeCondition,
		"outcome_condition":    i.OutcomeCondition,
		"intake_jurisdiction":  i.IntakeJurisdiction,
		"outcome_jurisdiction": i.OutcomeJurisdiction,
		"location":             i.Location,
		"animal_count":         i.AnimalCount,
		"zip_code":             i.ZipCode,
	}
}

type Record struct {
	Animal Animal
	Intake Intake
}

// RecordReader yields records until it returns io.EOF.
type RecordReader interface {
	Next() (Record, error)
}

// rawRecord holds the export fields as text, before any parsing.
type rawRecord struct {
	AnimalID            string
	AnimalName          string
	AnimalType          string
	Breed               string
	Color               string
	Sex                 string
	AnimalSize          string
	DateOfBirth         string
	ImpoundNumber       string
	KennelNumber        string
	IntakeDate          string
	OutcomeDate         string
	DaysInShelter       string
	IntakeType          string
	IntakeSubtype       string
	OutcomeType         string
	OutcomeSubtype      string
	IntakeCondition     string
	OutcomeCondition    string
	IntakeJurisdiction  string
	OutcomeJurisdiction string
	ZipCode             string
	Location            string
	AnimalCount         string
}

func (raw rawRecord) parse() (Record, error) {
	animalID := strings.TrimSpace(raw.AnimalID)
	if animalID == "" {
		return Record{}, fmt.Errorf("%w: animal id is empty", ErrMalformedRecord)
	}
	impound := strings.TrimSpace(raw.ImpoundNumber)
	if impound == "" {
		return Record{}, fmt.Errorf("%w: impound number is empty", ErrMalformedRecord)
	}

	dateOfBirth, err := parseDate(raw.DateOfBirth)
	if err != nil {
		return Record{}, fmt.Errorf("date of birth: %w", err)
	}
	intakeDate, err := parseDate(raw.IntakeDate)
	if err != nil {
		return Record{}, fmt.Errorf("intake date: %w", err)
	}
	outcomeDate, err := parseDate(raw.OutcomeDate)
	if err != nil {
		return Record{}, fmt.Errorf("outcome date: %w", err)
	}
	daysInShelter, err := parseCount(raw.DaysInShelter)
	if err != nil {
		return Record{}, fmt.Errorf("days in shelter: %w", err)
	}
	animalCount, err := parseCount(raw.AnimalCount)
	if err != nil {
		return Record{}, fmt.Errorf("animal count: %w", err)
	}
	zipCode, err := parseZipCode(raw.ZipCode)
	if err != nil {
		return Record{}, fmt.Errorf("zip code: %w", err)
	}

	return Record{
		Animal: Animal{
			ID:          animalID,
			Name:        strings.TrimSpace(raw.AnimalName),
			Type:        strings.TrimSpace(raw.AnimalType),
			Breed:       strings.TrimSpace(raw.Breed),
			Color:       strings.TrimSpace(raw.Color),
			Sex:         strings.TrimSpace(raw.Sex),
			Size:        strings.TrimSpace(raw.AnimalSize),
			DateOfBirth: dateOfBirth,
		},
		Intake: Intake{
			ImpoundNumber:       impound,
			KennelNumber:        strings.TrimSpace(raw.KennelNumber),
			AnimalID:            animalID,
			IntakeDate:          intakeDate,
			OutcomeDate:         outcomeDate,
			DaysInShelter:       daysInShelter,
			IntakeType:          strings.TrimSpace(raw.IntakeType),
			IntakeSubtype:       strings.TrimSpace(raw.IntakeSubtype),
			OutcomeType:         strings.TrimSpace(raw.OutcomeType),
			OutcomeSubtype:      strings.TrimSpace(raw.OutcomeSubtype),
			IntakeCondition:     strings.TrimSpace(raw.IntakeCondition),
			OutcomeCondition:    strings.TrimSpace(raw.OutcomeCondition),
			IntakeJurisdiction:  strings.TrimSpace(raw.IntakeJurisdiction),
			OutcomeJurisdiction: strings.TrimSpace(raw.OutcomeJurisdiction),
			Location:            strings.TrimSpace(raw.Location),
			AnimalCount:         animalCount,
			ZipCode:             zipCode,
		},
	}, nil
}

// parseDate reads dd/mm/yyyy. Empty or incomplete dates are unknown, not errors.
func parseDate(value string) (*time.Time, error) {
	parts := strings.Split(strings.TrimSpace(value), "/")
	if len(parts) < 3 {
		return nil, nil
	}
	day, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, fmt.Errorf("%w: day in %q", ErrMalformedRecord, value)
	}
	month, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month in %q", ErrMalformedRecord, value)
	}
	year, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return nil, fmt.Errorf("%w: year in %q", ErrMalformedRecord, value)
	}
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return &date, nil
}

// parseCount reads whole numbers that may carry thousands separators, like "1,204".
func parseCount(value string) (int, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	if cleaned == "" {
		return 0, fmt.Errorf("%w: empty number", ErrMalformedRecord)
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrMalformedRecord, value)
	}
	return n, nil
}

// parseZipCode accepts spreadsheet floats like "95404.0". Empty is 0.
func parseZipCode(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	whole, _, _ := strings.Cut(value, ".")
	n, err := strconv.Atoi(whole)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a zip code", ErrMalformedRecord, value)
	}
	return n, nil
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return *value
}
