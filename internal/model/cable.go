package model

// Endpoint end types. Point-to-point cables use A and B; branching (1xN)
// cables number their branch ends B1..Bn.
const (
	EndTypeA = "A"
	EndTypeB = "B"
)

// Cable is a physical cable with one or more endpoints.
type Cable struct {
	Base
	Label  string   `gorm:"size:128" json:"label,omitempty"`
	Type   string   `gorm:"size:32" json:"type,omitempty"`
	Length *float64 `json:"length,omitempty"`
	Color  string   `gorm:"size:32" json:"color,omitempty"`
	Notes  string   `gorm:"size:512" json:"notes,omitempty"`

	// Associations
	Endpoints []CableEndpoint `gorm:"foreignKey:CableID" json:"endpoints,omitempty"`
}

// CableEndpoint is one physical end of a cable. A nil PortID is an end that
// is not plugged in yet.
type CableEndpoint struct {
	Base
	CableID string  `gorm:"size:64;index;not null" json:"cableId"`
	PortID  *string `gorm:"size:64;index" json:"portId,omitempty"`
	EndType string  `gorm:"size:8;not null" json:"endType"`
	ShortID *int64  `gorm:"index" json:"shortId,omitempty"`
}
