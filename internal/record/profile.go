package record

import "github.com/rongwang/invoice-sheets/internal/models"

// BusinessTab is the tab holding the Field/Value business profile
const BusinessTab = "Business Details"

var profileFields = []struct {
	label string
	get   func(*models.BusinessProfile) *string
}{
	{"Company Name", func(p *models.BusinessProfile) *string { return &p.CompanyName }},
	{"Email", func(p *models.BusinessProfile) *string { return &p.Email }},
	{"Phone", func(p *models.BusinessProfile) *string { return &p.Phone }},
	{"Address Line 1", func(p *models.BusinessProfile) *string { return &p.AddressLine1 }},
	{"Address Line 2", func(p *models.BusinessProfile) *string { return &p.AddressLine2 }},
	{"City", func(p *models.BusinessProfile) *string { return &p.City }},
	{"Postal Code", func(p *models.BusinessProfile) *string { return &p.PostalCode }},
	{"Country", func(p *models.BusinessProfile) *string { return &p.Country }},
	{"Tax ID", func(p *models.BusinessProfile) *string { return &p.TaxID }},
}

// ProfileToRows renders a profile as a header row followed by one Field/Value row per field
func ProfileToRows(p models.BusinessProfile) [][]string {
	rows := [][]string{{"Field", "Value"}}
	for _, f := range profileFields {
		rows = append(rows, []string{f.label, *f.get(&p)})
	}
	return rows
}

// ProfileFromRows reads Field/Value rows. Unknown fields are ignored and the
// header row, if present, is skipped by label.
func ProfileFromRows(rows [][]string) models.BusinessProfile {
	var p models.BusinessProfile
	for _, row := range rows {
		label := cell(row, 0)
		for _, f := range profileFields {
			if f.label == label {
				*f.get(&p) = cell(row, 1)
				break
			}
		}
	}
	return p
}
