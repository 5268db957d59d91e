package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User 表示系统中的账号信息。
type User struct {
	gorm.Model
	Name         string   `gorm:"size:128"`
	Email        string   `gorm:"uniqueIndex;size:255"`
	PasswordHash string   `gorm:"size:255"`
	Resumes      []Resume `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
}

// Resume 表示用户创建的简历，各段落以 JSONB 存储在 Content 中。
// 时间戳由服务层时钟写入，不使用 GORM 的自动时间。
type Resume struct {
	ID         string         `gorm:"primaryKey;size:36"`
	OwnerID    uint           `gorm:"index"`
	LayoutType string         `gorm:"size:32"`
	Content    datatypes.JSON `gorm:"type:jsonb"`
	Version    int            `gorm:"not null;default:1"`
	CreatedAt  time.Time      `gorm:"autoCreateTime:false"`
	UpdatedAt  time.Time      `gorm:"index;autoUpdateTime:false"`
}

// Export 状态。
const (
	ExportPending   = "pending"
	ExportCompleted = "completed"
	ExportFailed    = "failed"
)

// Export 记录一次异步 PDF 导出任务及其产物位置。
type Export struct {
	ID         string `gorm:"primaryKey;size:36"`
	ResumeID   string `gorm:"index;size:36"`
	OwnerID    uint   `gorm:"index"`
	LayoutType string `gorm:"size:32"`
	ObjectKey  string `gorm:"size:512"`
	Status     string `gorm:"size:32"`
	Error      string `gorm:"size:1024"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AutoMigrate 创建或更新全部表结构。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &Resume{}, &Export{})
}
