package model

// Area 厂区区域表 — 对应 areas
type Area struct {
	AreaID      string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"area_id"`
	Name        string `gorm:"type:varchar(100);not null"                     json:"name"`
	Instruction string `gorm:"type:text"                                      json:"instruction,omitempty"`
	SoftDeleteModel
}

// TableName 指定表名
func (Area) TableName() string { return "areas" }

// MachineModel 机型表 — 对应 machine_models
// 备件目录与故障类型目录都挂在机型上
type MachineModel struct {
	MachineModelID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"machine_model_id"`
	Name           string `gorm:"type:varchar(100);not null"                     json:"name"`
	Manufacturer   string `gorm:"type:varchar(100)"                              json:"manufacturer,omitempty"`
	SoftDeleteModel

	// 关联
	SpareParts []SparePart `gorm:"foreignKey:MachineModelID;references:MachineModelID" json:"spare_parts,omitempty"`
	TypeErrors []TypeError `gorm:"foreignKey:MachineModelID;references:MachineModelID" json:"type_errors,omitempty"`
}

// TableName 指定表名
func (MachineModel) TableName() string { return "machine_models" }

// Device 设备表 — 对应 devices
//
// 位置三元组 (area_id, position_x, position_y) 整体可空：
// 无位置的设备视为"未投放/已移除"，不出现在区域视图中。
// 换新时位置从旧设备整体迁移到新设备（同一事务内）。
type Device struct {
	DeviceID       string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"device_id"`
	MachineModelID string  `gorm:"type:uuid;not null"                             json:"machine_model_id"`
	AreaID         *string `gorm:"type:uuid"                                      json:"area_id,omitempty"`
	PositionX      *int    `json:"position_x,omitempty"`
	PositionY      *int    `json:"position_y,omitempty"`
	Description    string  `gorm:"type:text"                                      json:"description,omitempty"`
	Active         bool    `gorm:"not null;default:true"                          json:"active"`
	VersionedModel

	// 关联
	MachineModel *MachineModel `gorm:"foreignKey:MachineModelID;references:MachineModelID" json:"machine_model,omitempty"`
	Area         *Area         `gorm:"foreignKey:AreaID;references:AreaID"                 json:"area,omitempty"`
}

// TableName 指定表名
func (Device) TableName() string { return "devices" }

// HasPosition 设备是否已投放（三项齐全才算有位置）
func (d *Device) HasPosition() bool {
	return d.AreaID != nil && d.PositionX != nil && d.PositionY != nil
}

// ClearPosition 清空位置（旧设备下架时调用）
func (d *Device) ClearPosition() {
	d.AreaID = nil
	d.PositionX = nil
	d.PositionY = nil
}
