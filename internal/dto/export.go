package dto

// ── 出库模块 DTO ──

// OpenExportRequest 手工开出库单请求（常规路径由派工自动触发）
type OpenExportRequest struct {
	TaskID     string   `json:"task_id"     binding:"required,uuid"`
	ExportType string   `json:"export_type" binding:"required,oneof=DEVICE SPARE_PART"`
	DeviceID   string   `json:"device_id"   binding:"omitempty,uuid"`
	IssueIDs   []string `json:"issue_ids"   binding:"omitempty,dive,uuid"`
}

// ExportListRequest 出库单列表查询
type ExportListRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=WAITING EXPORTED CANCEL"`
	PaginationRequest
}

// ExportResponse 出库单响应
// detail 为多态字段：DEVICE 出库含 device_id，SPARE_PART 出库含 issue_ids
type ExportResponse struct {
	ID         string       `json:"id"`
	TaskID     string       `json:"task_id"`
	ExportType string       `json:"export_type"`
	Detail     ExportDetail `json:"detail"`
	Status     string       `json:"status"`
	CreatedAt  string       `json:"created_at"`
}

// ExportDetail 出库明细
type ExportDetail struct {
	DeviceID string   `json:"device_id,omitempty"`
	IssueIDs []string `json:"issue_ids,omitempty"`
}
