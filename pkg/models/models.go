package models

import (
	"time"
)

type User struct {
	ID           uint     `gorm:"primaryKey"`
	Username     string   `gorm:"size:150;not null;uniqueIndex"`
	Email        string   `gorm:"size:254;not null;uniqueIndex"`
	PasswordHash string   `gorm:"not null"`
	Profile      *Profile `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is created together with its User and never deleted on its own.
type Profile struct {
	ID      uint   `gorm:"primaryKey"`
	UserID  uint   `gorm:"not null;uniqueIndex"`
	Avatar  string `gorm:"size:255"`
	Hobbies string `gorm:"type:text;not null;default:''"`
	Bio     string `gorm:"size:300;not null;default:''"`
}

type Review struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;index"`
	User      User      `gorm:"constraint:OnDelete:CASCADE"`
	Title     string    `gorm:"size:1000;not null"`
	Author    string    `gorm:"size:1000;not null"`
	ImageURL  *string   `gorm:"size:500"`
	Text      string    `gorm:"type:text;not null"`
	Rating    int       `gorm:"not null;check:rating >= 1 AND rating <= 5"`
	CreatedAt time.Time `gorm:"index"`
	Likes     []User    `gorm:"many2many:review_likes;constraint:OnDelete:CASCADE"`
	Comments  []Comment `gorm:"constraint:OnDelete:CASCADE"`
}

type Comment struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;index"`
	User      User      `gorm:"constraint:OnDelete:CASCADE"`
	ReviewID  uint      `gorm:"not null;index"`
	ParentID  *uint     `gorm:"index"`
	Replies   []Comment `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE"`
	Text      string    `gorm:"size:200;not null"`
	CreatedAt time.Time
	Likes     []User `gorm:"many2many:comment_likes;constraint:OnDelete:CASCADE"`
}

type NotificationKind string

const (
	NotificationLike    NotificationKind = "like"
	NotificationComment NotificationKind = "comment"
	NotificationMessage NotificationKind = "message"
)

// Notification.ReviewID is cleared, not cascaded, when the review goes away.
type Notification struct {
	ID          uint             `gorm:"primaryKey"`
	RecipientID uint             `gorm:"not null;index"`
	Recipient   User             `gorm:"foreignKey:RecipientID;constraint:OnDelete:CASCADE"`
	SenderID    uint             `gorm:"not null;index"`
	Sender      User             `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE"`
	Kind        NotificationKind `gorm:"size:20;not null"`
	ReviewID    *uint            `gorm:"index"`
	Review      *Review          `gorm:"constraint:OnDelete:SET NULL"`
	Read        bool             `gorm:"not null;default:false"`
	CreatedAt   time.Time        `gorm:"index"`
}

type Message struct {
	ID          uint      `gorm:"primaryKey"`
	SenderID    uint      `gorm:"not null;index"`
	Sender      User      `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE"`
	RecipientID uint      `gorm:"not null;index"`
	Recipient   User      `gorm:"foreignKey:RecipientID;constraint:OnDelete:CASCADE"`
	Text        string    `gorm:"type:text;not null"`
	CreatedAt   time.Time `gorm:"index"`
}

// All lists every model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{}, &Profile{}, &Review{}, &Comment{}, &Notification{}, &Message{},
	}
}
