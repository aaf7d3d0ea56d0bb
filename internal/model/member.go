package model

// Member represents the public-facing profile addressed by pin in the
// ranking and the chat roster.
type Member struct {
	ID            uint   `json:"id" gorm:"primaryKey"`
	Nombre        string `json:"nombre" gorm:"type:varchar(100);not null"`
	Apellido1     string `json:"apellido1" gorm:"type:varchar(100)"`
	Pin           string `json:"pin" gorm:"type:varchar(50);uniqueIndex"`
	PuntosTotales int    `json:"puntos_totales" gorm:"default:0"`
}

func (Member) TableName() string { return "member" }
