package search

import (
	"encoding/json"

	"github.com/hazyhaar/alphasearch/pkg/index"
)

// document is the stored shape of a company in the index.
type document struct {
	ID    string         `json:"ID"`
	Items *documentItems `json:"items"`
	Links struct {
		Self string `json:"self"`
	} `json:"links"`
}

type documentItems struct {
	CorporateName         string `json:"corporate_name"`
	CompanyNumber         string `json:"company_number"`
	CompanyStatus         string `json:"company_status"`
	CompanyType           string `json:"company_type"`
	OrderedAlphaKeyWithID string `json:"ordered_alpha_key_with_id"`
}

// MapHit projects an index hit into a CompanyRecord. It fails with
// *MappingError when the payload is not a JSON object or has no items.
func MapHit(h index.HitRecord) (CompanyRecord, error) {
	var doc document
	if err := json.Unmarshal(h.Source, &doc); err != nil {
		return CompanyRecord{}, &MappingError{Key: h.Key, Err: err}
	}
	if doc.Items == nil {
		return CompanyRecord{}, &MappingError{Key: h.Key, Err: ErrMissingItems}
	}

	rec := CompanyRecord{
		ID:                    doc.ID,
		CorporateName:         doc.Items.CorporateName,
		CompanyNumber:         doc.Items.CompanyNumber,
		CompanyStatus:         doc.Items.CompanyStatus,
		CompanyType:           doc.Items.CompanyType,
		Links:                 Links{Self: doc.Links.Self},
		OrderedAlphaKeyWithID: doc.Items.OrderedAlphaKeyWithID,
	}
	if rec.OrderedAlphaKeyWithID == "" {
		rec.OrderedAlphaKeyWithID = h.Key
	}
	return rec, nil
}

// MapHits maps hits in order, stopping at the first failure.
func MapHits(hits []index.HitRecord) ([]CompanyRecord, error) {
	out := make([]CompanyRecord, 0, len(hits))
	for _, h := range hits {
		rec, err := MapHit(h)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Document builds the stored payload for a company. It is the inverse of
// MapHit and is used when loading a corpus.
func Document(rec CompanyRecord) (json.RawMessage, error) {
	var doc document
	doc.ID = rec.ID
	doc.Items = &documentItems{
		CorporateName:         rec.CorporateName,
		CompanyNumber:         rec.CompanyNumber,
		CompanyStatus:         rec.CompanyStatus,
		CompanyType:           rec.CompanyType,
		OrderedAlphaKeyWithID: rec.OrderedAlphaKeyWithID,
	}
	doc.Links.Self = rec.Links.Self
	return json.Marshal(doc)
}
