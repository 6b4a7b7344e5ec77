package model

import (
	"time"

	"github.com/google/uuid"
)

// RefreshTokenModel mirrors the 'refresh_tokens' table. Only the SHA-256
// hash of the opaque secret is ever stored.
type RefreshTokenModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	PrincipalID uuid.UUID `gorm:"type:uuid;not null;index"`
	Role        string    `gorm:"type:varchar(20);not null"`
	TokenHash   string    `gorm:"type:varchar(64);unique;not null"`
	ClientIP    string    `gorm:"type:varchar(45)"`
	UserAgent   string    `gorm:"type:varchar(512)"`
	ExpiresAt   time.Time `gorm:"not null"`
	RevokedAt   *time.Time
	ReplacedBy  *uuid.UUID `gorm:"type:uuid"`
	CreatedAt   time.Time
}

// TableName explicitly sets the table name for GORM.
func (RefreshTokenModel) TableName() string {
	return "refresh_tokens"
}

// VerificationTokenModel mirrors the 'verification_tokens' table.
type VerificationTokenModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	PrincipalID uuid.UUID `gorm:"type:uuid;not null;index"`
	Role        string    `gorm:"type:varchar(20);not null"`
	TokenHash   string    `gorm:"type:varchar(64);unique;not null"`
	Purpose     string    `gorm:"type:varchar(50);not null;index:idx_verification_hash_purpose"`
	ExpiresAt   time.Time `gorm:"not null"`
	CreatedAt   time.Time
}

// TableName explicitly sets the table name for GORM.
func (VerificationTokenModel) TableName() string {
	return "verification_tokens"
}
