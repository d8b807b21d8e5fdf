package models

// TableField maps a legacy numeric table field id to its stable external id.
type TableField struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"externalId" validate:"required"`
	TableID    string `json:"tableId"`
	Name       string `json:"name"`
}
