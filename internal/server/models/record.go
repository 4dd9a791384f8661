// Package models defines server-side data models persisted in the database.
package models

import "time"

// Allowed values for EquipmentRecord.State. The database enforces the same
// set with a CHECK constraint.
const (
	StateOperational = "operational"
	StateMaintenance = "maintenance"
	StateDamaged     = "damaged"
)

// Allowed values for EquipmentRecord.WindowsUpdateApplied.
const (
	WindowsUpdateYes = "yes"
	WindowsUpdateNo  = "no"
)

// EquipmentRecord is one equipment inspection: identity of the asset, who is
// responsible for it, where it is, its state, and the photos taken during
// the inspection.
type EquipmentRecord struct {
	// ID is store-assigned and immutable.
	ID int64 `json:"id"`
	// EquipoID is the externally chosen equipment identifier, unique
	// across records.
	EquipoID     string `json:"equipoId"`
	SerialNumber string `json:"serialNumber"`
	// PlacaML is an optional asset tag.
	PlacaML     string `json:"placaMl,omitempty"`
	Responsible string `json:"responsible"`
	Role        string `json:"role"`

	// Location. Either the coordinate pair, the manual description, both
	// or neither may be present; no consistency between them is enforced.
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	AutoAddress    string   `json:"autoAddress,omitempty"`
	ManualLocation string   `json:"manualLocation,omitempty"`

	State                string `json:"state"`
	WindowsUpdateApplied string `json:"windowsUpdateApplied"`

	Observations     string `json:"observations,omitempty"`
	DetectedProblems string `json:"detectedProblems,omitempty"`

	// Images is owned entirely by the record and persisted as one JSONB
	// column; descriptors are never independently addressable.
	Images []ImageDescriptor `json:"images"`

	ReviewedAt time.Time  `json:"reviewedAt"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
	Reviewer   string     `json:"reviewer,omitempty"`
}

// ImageDescriptor describes one photo attached to a record. Filename is the
// storage key: a bare object key for remote-hosted images, or a path
// relative to the local fallback root for locally-hosted ones. Use Ref to
// tell the two apart.
type ImageDescriptor struct {
	Title    string `json:"title,omitempty"`
	Filename string `json:"filename"`
	// URL is the publicly resolvable address of the image.
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`

	// Set only by URL reconciliation, on images whose URL was rewritten.
	PreviousURL string     `json:"previousUrl,omitempty"`
	CorrectedAt *time.Time `json:"correctedAt,omitempty"`
}

// Ref classifies the descriptor's hosting.
func (d ImageDescriptor) Ref() ImageRef {
	return ClassifyImage(d.Filename, d.URL)
}

// HasLocation reports whether the record carries a full coordinate pair.
func (r *EquipmentRecord) HasLocation() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// ValidState reports whether s is one of the allowed State values.
func ValidState(s string) bool {
	return s == StateOperational || s == StateMaintenance || s == StateDamaged
}

// ValidWindowsUpdate reports whether s is one of the allowed
// WindowsUpdateApplied values.
func ValidWindowsUpdate(s string) bool {
	return s == WindowsUpdateYes || s == WindowsUpdateNo
}

// RecordFilter restricts List results. Zero-value fields are ignored; the
// populated ones compose conjunctively. State is an exact match, the rest
// are case-insensitive substring matches.
type RecordFilter struct {
	State        string
	Responsible  string
	EquipoID     string
	SerialNumber string
	Reviewer     string
}
