package conserver

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	// VconVersion is the version of the vCon container written by NewVcon.
	VconVersion = "0.0.1"

	// AnalysisTypeTags is the analysis type holding the tags added to a vCon.
	AnalysisTypeTags = "tags"
)

// Vcon is the conversation container that flows through chains. The UUID is assigned once on creation
// and is the only key used by the record store, the queues and the chain state.
type Vcon struct {
	UUID        string       `json:"uuid"`
	Vcon        string       `json:"vcon"`
	Subject     string       `json:"subject,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at,omitempty"`
	Parties     []Party      `json:"parties"`
	Dialog      []Dialog     `json:"dialog"`
	Analysis    []Analysis   `json:"analysis"`
	Attachments []Attachment `json:"attachments"`
}

type Party struct {
	Tel        string `json:"tel,omitempty"`
	Mailto     string `json:"mailto,omitempty"`
	Name       string `json:"name,omitempty"`
	Role       string `json:"role,omitempty"`
	Validation string `json:"validation,omitempty"`
}

// Dialog is a recording or text segment. Content is either inline (Body + Encoding) or referenced by
// URL in which case Alg and Signature describe the integrity of the external content.
type Dialog struct {
	Type       string    `json:"type"`
	Start      time.Time `json:"start"`
	Duration   float64   `json:"duration,omitempty"`
	Parties    []int     `json:"parties"`
	Originator *int      `json:"originator,omitempty"`
	Mimetype   string    `json:"mimetype,omitempty"`
	Filename   string    `json:"filename,omitempty"`
	Body       string    `json:"body,omitempty"`
	Encoding   string    `json:"encoding,omitempty"`
	URL        string    `json:"url,omitempty"`
	Alg        string    `json:"alg,omitempty"`
	Signature  string    `json:"signature,omitempty"`
}

// Analysis is a derived annotation of a dialog such as a transcript, summary or sentiment.
type Analysis struct {
	Type     string          `json:"type"`
	Dialog   int             `json:"dialog"`
	Vendor   string          `json:"vendor"`
	Schema   string          `json:"schema,omitempty"`
	Body     json.RawMessage `json:"body"`
	Encoding string          `json:"encoding,omitempty"`
}

type Attachment struct {
	Type     string          `json:"type"`
	Body     json.RawMessage `json:"body"`
	Encoding string          `json:"encoding,omitempty"`
}

// NewVcon returns an empty vCon with a time sortable identifier.
func NewVcon(now time.Time) (*Vcon, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	return &Vcon{
		UUID:        id.String(),
		Vcon:        VconVersion,
		CreatedAt:   now,
		Parties:     []Party{},
		Dialog:      []Dialog{},
		Analysis:    []Analysis{},
		Attachments: []Attachment{},
	}, nil
}

// AddAnalysis appends an analysis entry with body marshalled to JSON. A string body is stored as a JSON
// string with "none" encoding, anything else is stored as JSON.
func (v *Vcon) AddAnalysis(analysisType string, dialog int, vendor string, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	encoding := "json"
	if _, ok := body.(string); ok {
		encoding = "none"
	}

	v.Analysis = append(v.Analysis, Analysis{
		Type:     analysisType,
		Dialog:   dialog,
		Vendor:   vendor,
		Body:     b,
		Encoding: encoding,
	})

	return nil
}

// FindAnalysis returns the first analysis entry matching the type for the dialog index. A negative dialog
// index matches any dialog.
func (v *Vcon) FindAnalysis(analysisType string, dialog int) (*Analysis, bool) {
	for i := range v.Analysis {
		a := &v.Analysis[i]
		if a.Type != analysisType {
			continue
		}

		if dialog >= 0 && a.Dialog != dialog {
			continue
		}

		return a, true
	}

	return nil, false
}

func (v *Vcon) HasAnalysis(analysisType string, dialog int) bool {
	_, ok := v.FindAnalysis(analysisType, dialog)
	return ok
}

func (v *Vcon) AddAttachment(attachmentType string, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	v.Attachments = append(v.Attachments, Attachment{
		Type:     attachmentType,
		Body:     b,
		Encoding: "json",
	})

	return nil
}

func (v *Vcon) FindAttachment(attachmentType string) (*Attachment, bool) {
	for i := range v.Attachments {
		if v.Attachments[i].Type == attachmentType {
			return &v.Attachments[i], true
		}
	}

	return nil, false
}

// Tags returns the tags recorded on the vCon as "name:value" pairs decoded into a map.
func (v *Vcon) Tags() map[string]string {
	tags := make(map[string]string)
	for _, a := range v.Analysis {
		if a.Type != AnalysisTypeTags {
			continue
		}

		var pairs map[string]string
		if err := json.Unmarshal(a.Body, &pairs); err != nil {
			// NoReturnErr: Tags written by other producers may not be a flat map.
			continue
		}

		for k, val := range pairs {
			tags[k] = val
		}
	}

	return tags
}

// AddTag records a tag in the vCon's tags analysis entry, creating the entry when it does not exist yet.
func (v *Vcon) AddTag(name, value string) error {
	for i := range v.Analysis {
		a := &v.Analysis[i]
		if a.Type != AnalysisTypeTags {
			continue
		}

		pairs := make(map[string]string)
		if len(a.Body) > 0 {
			if err := json.Unmarshal(a.Body, &pairs); err != nil {
				return err
			}
		}

		pairs[name] = value
		b, err := json.Marshal(pairs)
		if err != nil {
			return err
		}

		a.Body = b
		return nil
	}

	return v.AddAnalysis(AnalysisTypeTags, 0, "conserver", map[string]string{name: value})
}
