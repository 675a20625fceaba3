package model

import "time"

// SparePart 备件表 — 对应 spare_parts
//
// quantity 永不为负：扣减只通过 quantity >= n 的条件 UPDATE 进行，
// 且只在出库单转为 EXPORTED 时发生。
type SparePart struct {
	SparePartID    string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"spare_part_id"`
	MachineModelID string     `gorm:"type:uuid;not null"                             json:"machine_model_id"`
	Name           string     `gorm:"type:varchar(100);not null"                     json:"name"`
	Quantity       int        `gorm:"not null;default:0"                             json:"quantity"`
	SafetyStock    int        `gorm:"not null;default:0"                             json:"safety_stock"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	SoftDeleteModel
}

// TableName 指定表名
func (SparePart) TableName() string { return "spare_parts" }

// TypeError 故障类型目录表 — 对应 type_errors
// 每个机型维护自己的常见故障目录，Issue 通过 type_error_id 引用
type TypeError struct {
	TypeErrorID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"type_error_id"`
	MachineModelID string `gorm:"type:uuid;not null"                             json:"machine_model_id"`
	Name           string `gorm:"type:varchar(200);not null"                     json:"name"`
	Duration       int    `gorm:"not null;default:0"                             json:"duration"` // 预估处理时长（分钟）
	SoftDeleteModel
}

// TableName 指定表名
func (TypeError) TableName() string { return "type_errors" }
