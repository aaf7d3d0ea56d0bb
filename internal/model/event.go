package model

// Event is a static informational record, read-only from the API.
type Event struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	Nombre string `json:"nombre" gorm:"type:varchar(150);not null"`
	Fecha  string `json:"fecha" gorm:"type:varchar(50);not null"`
}

func (Event) TableName() string { return "event" }
