package model

import "time"

// Category classifies a report. Only the four values below are accepted.
type Category string

const (
	CategoryDiscrimination Category = "Discrimination"
	CategoryCorruption     Category = "Corruption"
	CategoryNonconformity  Category = "Nonconformity"
	CategorySuggestion     Category = "Suggestion"
)

// Categories lists the accepted categories in display order.
var Categories = []Category{
	CategoryDiscrimination,
	CategoryCorruption,
	CategoryNonconformity,
	CategorySuggestion,
}

// Attachment is an uploaded file as received from the form.
type Attachment struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// Empty reports whether the attachment carries no bytes.
func (a *Attachment) Empty() bool {
	return a == nil || a.Size == 0
}

// Submission is a report as submitted, before it has been persisted.
type Submission struct {
	FullName *string
	Category Category
	Area     string
	Message  string
	File     *Attachment
}

// DisplayName returns the submitter name or "Anonymous".
func (s Submission) DisplayName() string {
	if s.FullName == nil || *s.FullName == "" {
		return "Anonymous"
	}
	return *s.FullName
}

// NewReport is the validated data handed to the repository.
type NewReport struct {
	FullName *string
	Category Category
	Area     string
	Message  string
	FileURL  *string
}

// Report is a persisted submission. It is never updated after creation.
type Report struct {
	ID        string    `json:"id"`
	FullName  *string   `json:"fullName"`
	Category  Category  `json:"category"`
	Area      string    `json:"area"`
	Message   string    `json:"message"`
	FileURL   *string   `json:"fileUrl"`
	CreatedAt time.Time `json:"createdAt"`
}
