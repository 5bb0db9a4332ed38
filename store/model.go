package store

import "time"

// User 注册用户
type User struct {
	ID           uint      `gorm:"primaryKey"`
	Email        string    `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `gorm:"size:255;not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// TableName GORM 表名
func (User) TableName() string { return "users" }

// APIKey API 密钥记录。
// 只保存 SHA-256 摘要，明文密钥签发后不落库。
type APIKey struct {
	ID        uint      `gorm:"primaryKey"`
	Digest    string    `gorm:"uniqueIndex;size:64;not null"`
	Label     string    `gorm:"size:128"`
	Owner     string    `gorm:"index;size:255;not null"`
	Revoked   bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName GORM 表名
func (APIKey) TableName() string { return "api_keys" }
