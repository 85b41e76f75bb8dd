package model

import (
	"encoding/json"
	"fmt"
)

// Recommendations are nested in Go and flattened on the wire into the flag
// fields consumers branch on.

type conversionFields struct {
	ConversionRecommended bool     `json:"conversionRecommended"`
	ConversionReason      string   `json:"conversionReason,omitempty"`
	ConversionMessage     string   `json:"conversionMessage,omitempty"`
	SuggestedFormats      []string `json:"suggestedFormats,omitempty"`
}

func conversionOf(r *Recommendation) conversionFields {
	if r == nil {
		return conversionFields{}
	}
	return conversionFields{
		ConversionRecommended: true,
		ConversionReason:      r.Reason,
		ConversionMessage:     r.Message,
		SuggestedFormats:      r.Suggestions,
	}
}

func (c conversionFields) recommendation() *Recommendation {
	if !c.ConversionRecommended {
		return nil
	}
	return &Recommendation{
		Kind:        ConversionAdvice,
		Reason:      c.ConversionReason,
		Message:     c.ConversionMessage,
		Suggestions: c.SuggestedFormats,
	}
}

type improvementFields struct {
	ImprovementRecommended bool     `json:"improvementRecommended"`
	ImprovementReason      string   `json:"improvementReason,omitempty"`
	ImprovementMessage     string   `json:"improvementMessage,omitempty"`
	Suggestions            []string `json:"suggestions,omitempty"`
}

func improvementOf(r *Recommendation) improvementFields {
	if r == nil {
		return improvementFields{}
	}
	return improvementFields{
		ImprovementRecommended: true,
		ImprovementReason:      r.Reason,
		ImprovementMessage:     r.Message,
		Suggestions:            r.Suggestions,
	}
}

func (f improvementFields) recommendation() *Recommendation {
	if !f.ImprovementRecommended {
		return nil
	}
	return &Recommendation{
		Kind:        ImprovementAdvice,
		Reason:      f.ImprovementReason,
		Message:     f.ImprovementMessage,
		Suggestions: f.Suggestions,
	}
}

type (
	pdfAlias          PdfResult
	documentAlias     DocumentResult
	presentationAlias PresentationResult
	textAlias         TextResult
)

func (r *PdfResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type ResultType `json:"type"`
		pdfAlias
	}{TypePDF, pdfAlias(*r)})
}

func (r *DocumentResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type ResultType `json:"type"`
		documentAlias
		conversionFields
	}{TypeDocument, documentAlias(*r), conversionOf(r.Recommendation)})
}

func (r *DocumentResult) UnmarshalJSON(b []byte) error {
	var w struct {
		documentAlias
		conversionFields
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*r = DocumentResult(w.documentAlias)
	r.Recommendation = w.conversionFields.recommendation()
	return nil
}

func (r *PresentationResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type ResultType `json:"type"`
		presentationAlias
		conversionFields
	}{TypePresentation, presentationAlias(*r), conversionOf(r.Recommendation)})
}

func (r *PresentationResult) UnmarshalJSON(b []byte) error {
	var w struct {
		presentationAlias
		conversionFields
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*r = PresentationResult(w.presentationAlias)
	r.Recommendation = w.conversionFields.recommendation()
	return nil
}

func (r *TextResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type ResultType `json:"type"`
		textAlias
		improvementFields
	}{TypeText, textAlias(*r), improvementOf(r.Recommendation)})
}

func (r *TextResult) UnmarshalJSON(b []byte) error {
	var w struct {
		textAlias
		improvementFields
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*r = TextResult(w.textAlias)
	r.Recommendation = w.improvementFields.recommendation()
	return nil
}

// DecodeResult decodes a FormatResult by its "type" discriminator.
func DecodeResult(b []byte) (FormatResult, error) {
	var head struct {
		Type ResultType `json:"type"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return nil, fmt.Errorf("decode result type: %w", err)
	}

	var r FormatResult
	switch head.Type {
	case TypeCSV, TypeExcel:
		r = &TabularResult{}
	case TypePDF:
		r = &PdfResult{}
	case TypeDocument:
		r = &DocumentResult{}
	case TypePresentation:
		r = &PresentationResult{}
	case TypeText:
		r = &TextResult{}
	default:
		return nil, fmt.Errorf("unknown result type %q", head.Type)
	}
	if err := json.Unmarshal(b, r); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", head.Type, err)
	}
	return r, nil
}

func (d *ProcessedDocument) UnmarshalJSON(b []byte) error {
	var w struct {
		Name string          `json:"name"`
		Type string          `json:"type"`
		Size int64           `json:"size"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	d.Name, d.Type, d.Size, d.Data = w.Name, w.Type, w.Size, nil
	if len(w.Data) == 0 || string(w.Data) == "null" {
		return nil
	}
	r, err := DecodeResult(w.Data)
	if err != nil {
		return err
	}
	d.Data = r
	return nil
}
