package beezie

import (
	"strconv"
	"strings"
	"time"

	"github.com/codebyjaini/beezify/internal/domain"
)

// Trait names of the provider attribute bag. Lookup is case-insensitive, so
// the upstream's inconsistent casing ("serial" vs "Category") doesn't matter.
const (
	traitSerial     = "serial"
	traitYear       = "year"
	traitGrader     = "grader"
	traitGrade      = "grade"
	traitSubject    = "pokemon name"
	traitSetName    = "set name"
	traitCardNumber = "card number"
	traitCategory   = "category"
	traitLanguage   = "language"
)

// AttributeValue returns the value of the named trait from the attribute
// bag, matching trait names case-insensitively. A missing trait yields nil,
// never an error.
func AttributeValue(attrs []Attribute, traitType string) *string {
	for _, a := range attrs {
		if strings.EqualFold(a.TraitType, traitType) {
			v := a.TraitValue
			return &v
		}
	}
	return nil
}

// Normalize maps a detailed item into the canonical collectible record.
// Every field derived from the attribute bag is nil when the trait is
// absent; the price is nil when there is no active sale order or the amount
// doesn't parse.
func Normalize(d *ItemDetail) domain.Collectible {
	attrs := d.Metadata.Attributes
	return domain.Collectible{
		TokenID:      d.TokenID,
		Name:         domain.StrPtr(d.Metadata.Name),
		ImageURL:     domain.StrPtr(d.Metadata.Image),
		Price:        parsePrice(d.SellOrder),
		SerialNumber: AttributeValue(attrs, traitSerial),
		Year:         AttributeValue(attrs, traitYear),
		Grader:       AttributeValue(attrs, traitGrader),
		Grade:        AttributeValue(attrs, traitGrade),
		SubjectName:  AttributeValue(attrs, traitSubject),
		SetName:      AttributeValue(attrs, traitSetName),
		CardNumber:   AttributeValue(attrs, traitCardNumber),
		Category:     AttributeValue(attrs, traitCategory),
		Language:     AttributeValue(attrs, traitLanguage),
		LastUpdated:  time.Now().UTC(),
	}
}

func parsePrice(so *SellOrder) *float64 {
	if so == nil || so.AmountUSDC == "" {
		return nil
	}
	v, err := strconv.ParseFloat(so.AmountUSDC, 64)
	if err != nil {
		return nil
	}
	return &v
}
