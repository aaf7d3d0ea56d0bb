package model

// TimeLayout is the storage format of chat timestamps. It matches the
// text timestamps older tenant files already contain, so timestamps stay
// readable across schema revisions.
const TimeLayout = "2006-01-02 15:04:05"

// ChatMessage is one private message between two members, addressed by
// pin. IsRead flips false to true exactly once, when the receiver fetches
// the conversation; it is never reverted.
type ChatMessage struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Nombre      string `json:"nombre" gorm:"type:varchar(100)"`
	SenderPin   string `json:"sender_pin" gorm:"type:varchar(50);index"`
	ReceiverPin string `json:"receiver_pin" gorm:"type:varchar(50);index"`
	Texto       string `json:"texto" gorm:"type:text"`
	FilePath    string `json:"file_path"`
	FileType    string `json:"file_type"`
	IsRead      bool   `json:"is_read" gorm:"default:false"`
	CreatedAt   string `json:"created_at" gorm:"type:datetime;autoCreateTime:false"`
}

func (ChatMessage) TableName() string { return "chat_message" }
