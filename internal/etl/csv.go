package etl

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// Column positions in the Sonoma shelter CSV export.
const (
	colAnimalName          = 1
	colAnimalType          = 2
	colBreed               = 3
	colColor               = 4
	colSex                 = 5
	colAnimalSize          = 6
	colDateOfBirth         = 7
	colImpoundNumber       = 8
	colKennelNumber        = 9
	colAnimalID            = 10
	colIntakeDate          = 11
	colOutcomeDate         = 12
	colDaysInShelter       = 13
	colIntakeType          = 14
	colIntakeSubtype       = 15
	colOutcomeType         = 16
	colOutcomeSubtype      = 17
	colIntakeCondition     = 18
	colOutcomeCondition    = 19
	colIntakeJurisdiction  = 20
	colOutcomeJurisdiction = 21
	colZipCode             = 22
	colLocation            = 23
	colAnimalCount         = 24

	csvColumnCount = 25
)

// CSVReader streams records from the export, skipping the header row.
type CSVReader struct {
	reader  *csv.Reader
	started bool
	line    int
}

func NewCSVReader(r io.Reader) *CSVReader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true
	return &CSVReader{reader: reader}
}

func (c *CSVReader) Next() (Record, error) {
	if !c.started {
		c.started = true
		if _, err := c.reader.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				return Record{}, io.EOF
			}
			return Record{}, fmt.Errorf("read csv header: %w", err)
		}
		c.line = 1
	}

	fields, err := c.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("read csv line %d: %w", c.line+1, err)
	}
	c.line++
	if len(fields) < csvColumnCount {
		return Record{}, fmt.Errorf("csv line %d: %w: %d columns, want %d", c.line, ErrMalformedRecord, len(fields), csvColumnCount)
	}

	record, err := rawRecord{
		AnimalID:            fields[colAnimalID],
		AnimalName:          fields[colAnimalName],
		AnimalType:          fields[colAnimalType],
		Breed:               fields[colBreed],
		Color:               fields[colColor],
		Sex:                 fields[colSex],
		AnimalSize:          fields[colAnimalSize],
		DateOfBirth:         fields[colDateOfBirth],
		ImpoundNumber:       fields[colImpoundNumber],
		KennelNumber:        fields[colKennelNumber],
		IntakeDate:          fields[colIntakeDate],
		OutcomeDate:         fields[colOutcomeDate],
		DaysInShelter:       fields[colDaysInShelter],
		IntakeType:          fields[colIntakeType],
		IntakeSubtype:       fields[colIntakeSubtype],
		OutcomeType:         fields[colOutcomeType],
		OutcomeSubtype:      fields[colOutcomeSubtype],
		IntakeCondition:     fields[colIntakeCondition],
		OutcomeCondition:    fields[colOutcomeCondition],
		IntakeJurisdiction:  fields[colIntakeJurisdiction],
		OutcomeJurisdiction: fields[colOutcomeJurisdiction],
		ZipCode:             fields[colZipCode],
		Location:            fields[colLocation],
		AnimalCount:         fields[colAnimalCount],
	}.parse()
	if err != nil {
		return Record{}, fmt.Errorf("csv line %d: %w", c.line, err)
	}
	return record, nil
}
