package models

import (
	"time"
)

// ConnectionType 关系类型
type ConnectionType string

const (
	ConnectionFamily    ConnectionType = "Family"
	ConnectionFriend    ConnectionType = "Friend"
	ConnectionColleague ConnectionType = "Colleague"
)

// ValidConnectionType 检查关系类型是否合法
func ValidConnectionType(t ConnectionType) bool {
	switch t {
	case ConnectionFamily, ConnectionFriend, ConnectionColleague:
		return true
	}
	return false
}

// ConnectionStatus 关系状态
type ConnectionStatus string

const (
	ConnectionPending  ConnectionStatus = "Pending"
	ConnectionAccepted ConnectionStatus = "Accepted"
)

// Priority 任务优先级
type Priority string

const (
	PriorityUrgent Priority = "Urgent"
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// User 用户模型
type User struct {
	UserID       uint       `gorm:"primaryKey;column:user_id" json:"user_id"`
	Username     string     `gorm:"size:100;not null;uniqueIndex" json:"username"`
	Email        string     `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string     `gorm:"column:password_hash;size:255;not null" json:"-"`
	AvatarURL    string     `gorm:"column:avatar_url;size:500" json:"avatar_url"`
	CreateTime   time.Time  `gorm:"column:create_time;autoCreateTime" json:"create_time"`
	LastLogin    *time.Time `gorm:"column:last_login" json:"last_login"`
}

func (User) TableName() string {
	return "users"
}

// Connection 用户关系模型
// user_a 为发起方，user_b 为接收方；一对用户最多存在一条记录，
// 但查询时两个方向都必须检查。
type Connection struct {
	ConnectionID   uint             `gorm:"primaryKey;column:connection_id" json:"connection_id"`
	UserAID        uint             `gorm:"column:user_a_id;not null;uniqueIndex:uniq_connection_pair" json:"user_a_id"`
	UserBID        uint             `gorm:"column:user_b_id;not null;uniqueIndex:uniq_connection_pair" json:"user_b_id"`
	ConnectionType ConnectionType   `gorm:"column:connection_type;size:20;not null" json:"connection_type"`
	Status         ConnectionStatus `gorm:"size:20;not null;default:Pending" json:"status"`
	CreateTime     time.Time        `gorm:"column:create_time;autoCreateTime" json:"create_time"`

	UserA *User `gorm:"foreignKey:UserAID" json:"user_a,omitempty"`
	UserB *User `gorm:"foreignKey:UserBID" json:"user_b,omitempty"`
}

func (Connection) TableName() string {
	return "connections"
}

// Involves 判断用户是否为关系的任一端
func (c *Connection) Involves(userID uint) bool {
	return c.UserAID == userID || c.UserBID == userID
}

// OtherSide 返回关系中对方的用户ID
func (c *Connection) OtherSide(userID uint) uint {
	if c.UserAID == userID {
		return c.UserBID
	}
	return c.UserAID
}

// Section 内容分区模型
type Section struct {
	SectionID           uint      `gorm:"primaryKey;column:section_id" json:"section_id"`
	OwnerUserID         uint      `gorm:"column:owner_user_id;not null;index" json:"owner_user_id"`
	SectionName         string    `gorm:"column:section_name;size:200;not null" json:"section_name"`
	DisplayColor        string    `gorm:"column:display_color;size:20;not null;default:#808080" json:"display_color"`
	IsTemplate          bool      `gorm:"column:is_template;not null;default:false" json:"is_template"`
	TemplateDescription string    `gorm:"column:template_description;size:1000" json:"template_description"`
	CreateTime          time.Time `gorm:"column:create_time;autoCreateTime" json:"create_time"`

	Owner       *User           `gorm:"foreignKey:OwnerUserID" json:"owner,omitempty"`
	Items       []Item          `gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	AccessRules []SectionAccess `gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE" json:"access_rules,omitempty"`
}

func (Section) TableName() string {
	return "sections"
}

// SectionAccess 分区访问规则
// 每个 (section, connection_type) 组合最多一条规则，后写覆盖。
type SectionAccess struct {
	SectionAccessID       uint           `gorm:"primaryKey;column:section_access_id" json:"section_access_id"`
	SectionID             uint           `gorm:"column:section_id;not null;uniqueIndex:uniq_section_access" json:"section_id"`
	AllowedConnectionType ConnectionType `gorm:"column:allowed_connection_type;size:20;not null;uniqueIndex:uniq_section_access" json:"allowed_connection_type"`
	CanView               bool           `gorm:"column:can_view;not null;default:false" json:"can_view"`
	CanEdit               bool           `gorm:"column:can_edit;not null;default:false" json:"can_edit"`
}

func (SectionAccess) TableName() string {
	return "section_access"
}

// Item 条目模型（笔记/任务）
type Item struct {
	ItemID             uint       `gorm:"primaryKey;column:item_id" json:"item_id"`
	SectionID          uint       `gorm:"column:section_id;not null;index" json:"section_id"`
	CreatorUserID      uint       `gorm:"column:creator_user_id;not null;index" json:"creator_user_id"`
	ContentText        string     `gorm:"column:content_text;type:text;not null" json:"content_text"`
	IsTask             bool       `gorm:"column:is_task;not null;default:false" json:"is_task"`
	DueDate            *time.Time `gorm:"column:due_date" json:"due_date"`
	IsCompleted        bool       `gorm:"column:is_completed;not null;default:false" json:"is_completed"`
	Priority           Priority   `gorm:"size:10;not null;default:Medium" json:"priority"`
	VectorEmbedding    []byte     `gorm:"column:vector_embedding" json:"-"`
	OriginalAudioURL   string     `gorm:"column:original_audio_url;size:500" json:"original_audio_url"`
	CreateTime         time.Time  `gorm:"column:create_time;autoCreateTime" json:"create_time"`
	LastModifiedByID   *uint      `gorm:"column:last_modified_by_user_id" json:"last_modified_by_user_id"`
	LastModifiedAt     *time.Time `gorm:"column:last_modified_at" json:"last_modified_at"`

	Section *Section `gorm:"foreignKey:SectionID" json:"section,omitempty"`
	Creator *User    `gorm:"foreignKey:CreatorUserID" json:"creator,omitempty"`
}

func (Item) TableName() string {
	return "items"
}

// TextChunk 向量化后的文本块（数据库向量存储后端使用）
// original_hash_id 为整段原文的指纹，用于去重。
type TextChunk struct {
	ChunkID        uint      `gorm:"primaryKey;column:chunk_id" json:"chunk_id"`
	UserID         uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	OriginalHashID string    `gorm:"column:original_hash_id;size:64;not null;index" json:"original_hash_id"`
	ChunkIndex     int       `gorm:"column:chunk_index;not null" json:"chunk_index"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	Embedding      string    `gorm:"type:text" json:"-"`
	Metadata       string    `gorm:"type:text" json:"metadata"`
	VectorID       string    `gorm:"column:vector_id;size:100" json:"vector_id"`
	CreateTime     time.Time `gorm:"column:create_time;autoCreateTime" json:"create_time"`
}

func (TextChunk) TableName() string {
	return "text_chunks"
}
