package model

// User represents an authentication account inside one tenant database.
// MemberID links to the paired ranking profile explicitly; older tenant
// files correlated the two tables by insertion order only.
type User struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Username    string `json:"username" gorm:"type:varchar(100)"`
	Email       string `json:"email" gorm:"type:varchar(150);uniqueIndex"`
	Password    string `json:"-" gorm:"type:varchar(200)"`
	IsSuperuser bool   `json:"is_superuser" gorm:"default:false"`
	MemberID    *uint  `json:"member_id,omitempty" gorm:"index"`
}

// TableName keeps the legacy singular table name so the schema patcher
// works against tenant files created by earlier deployments.
func (User) TableName() string { return "user" }
