package dto

// ── 任务模块 DTO ──

// CreateTaskRequest 创建任务请求
type CreateTaskRequest struct {
	RequestID string   `json:"request_id" binding:"required,uuid"`
	Name      string   `json:"name"       binding:"max=200"`
	Type      string   `json:"type"       binding:"omitempty,oneof=REPAIR RENEW"`
	Priority  bool     `json:"priority"`
	IssueIDs  []string `json:"issue_ids"  binding:"required,min=1,dive,uuid"`
}

// AssignFixerRequest 派工请求
type AssignFixerRequest struct {
	FixerID   string `json:"fixer_id"   binding:"required,uuid"`
	FixerDate string `json:"fixer_date" binding:"required"` // YYYY-MM-DD
}

// AssignRenewalDeviceRequest 指定换新设备请求
type AssignRenewalDeviceRequest struct {
	DeviceID string `json:"device_id" binding:"required,uuid"`
}

// TaskListRequest 任务列表查询
type TaskListRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=AWAITING_SPARE_PART AWAITING_FIXER ASSIGNED COMPLETED CANCELLED"`
	PaginationRequest
}

// TaskResponse 任务响应
type TaskResponse struct {
	ID          string           `json:"id"`
	RequestID   string           `json:"request_id"`
	Name        string           `json:"name,omitempty"`
	Status      string           `json:"status"`
	Type        string           `json:"type"`
	Priority    bool             `json:"priority"`
	Fixer       *AccountResponse `json:"fixer,omitempty"`
	FixerDate   string           `json:"fixer_date,omitempty"`
	Device      *DeviceResponse  `json:"device,omitempty"`
	DeviceRenew *DeviceResponse  `json:"device_renew,omitempty"`
	Issues      []IssueResponse  `json:"issues,omitempty"`
	Export      *ExportResponse  `json:"export,omitempty"`
	CancelBy    string           `json:"cancel_by,omitempty"`
	CreatedAt   string           `json:"created_at"`
}

// IssueResponse 故障条目响应
type IssueResponse struct {
	ID          string                   `json:"id"`
	TaskID      string                   `json:"task_id,omitempty"` // 释放后为空
	FixType     string                   `json:"fix_type"`
	Status      string                   `json:"status"`
	Description string                   `json:"description,omitempty"`
	TypeError   string                   `json:"type_error,omitempty"`
	SpareParts  []IssueSparePartResponse `json:"spare_parts,omitempty"`
}

// IssueSparePartResponse 故障备件需求响应
type IssueSparePartResponse struct {
	SparePartID string `json:"spare_part_id"`
	Name        string `json:"name,omitempty"`
	Quantity    int    `json:"quantity"`
}
