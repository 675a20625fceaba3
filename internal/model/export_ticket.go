package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ExportStatus 出库单状态
type ExportStatus string

const (
	ExportStatusWaiting  ExportStatus = "WAITING"  // 待出库
	ExportStatusExported ExportStatus = "EXPORTED" // 已出库（库存已扣减）
	ExportStatusCancel   ExportStatus = "CANCEL"   // 已取消（WAITING 期间未扣库存，无需回补）
)

// exportTransitions 出库单状态迁移表；EXPORTED / CANCEL 无出边。
// 对终态重复取消是静默 no-op（任务取消级联的要求），由 Service 层处理。
var exportTransitions = map[ExportStatus][]ExportStatus{
	ExportStatusWaiting: {ExportStatusExported, ExportStatusCancel},
}

// CanTransitionTo 校验状态迁移是否合法
func (s ExportStatus) CanTransitionTo(to ExportStatus) bool {
	for _, t := range exportTransitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// Terminal 是否为吸收态
func (s ExportStatus) Terminal() bool {
	return len(exportTransitions[s]) == 0
}

// ExportType 出库类型
type ExportType string

const (
	ExportTypeDevice    ExportType = "DEVICE"     // 整机出库（换新）
	ExportTypeSparePart ExportType = "SPARE_PART" // 备件出库（维修）
)

// ExportDetail 出库明细，多态 JSON 列：
// DEVICE 出库填 device_id，SPARE_PART 出库填 issue_ids。
// 调用方必须先判别 export_type 再解读 detail。
type ExportDetail struct {
	DeviceID string   `json:"device_id,omitempty"`
	IssueIDs []string `json:"issue_ids,omitempty"`
}

// Scan 实现 sql.Scanner，从 jsonb 反序列化
func (d *ExportDetail) Scan(src interface{}) error {
	if src == nil {
		*d = ExportDetail{}
		return nil
	}
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("ExportDetail.Scan: unsupported type %T", src)
	}
	return json.Unmarshal(b, d)
}

// Value 实现 driver.Valuer，序列化为 jsonb
func (d ExportDetail) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// ExportTicket 仓库出库单表 — 对应 export_tickets
//
// 不变式：每个任务至多一张非 CANCEL 的出库单（1:1，派工时惰性创建）。
type ExportTicket struct {
	TicketID   string       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"ticket_id"`
	TaskID     string       `gorm:"type:uuid;not null;index"                       json:"task_id"`
	ExportType ExportType   `gorm:"type:varchar(15);not null"                      json:"export_type"`
	Detail     ExportDetail `gorm:"type:jsonb;not null"                            json:"detail"`
	Status     ExportStatus `gorm:"type:varchar(10);not null;default:'WAITING'"    json:"status"`
	VersionedModel

	// 关联
	Task *Task `gorm:"foreignKey:TaskID;references:TaskID" json:"task,omitempty"`
}

// TableName 指定表名
func (ExportTicket) TableName() string { return "export_tickets" }
