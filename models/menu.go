package models

// PublicMenu is what a customer sees after scanning a table's QR code.
type PublicMenu struct {
	Establishment Establishment `json:"establishment"`
	Categories    []Category    `json:"categories"`
	Products      []Product     `json:"products"`
}
