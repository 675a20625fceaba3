package dto

// ── 备件模块 DTO ──

// RestockRequest 备件补货请求
type RestockRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

// SparePartListRequest 备件列表查询
type SparePartListRequest struct {
	Keyword  string `form:"keyword"`
	LowStock bool   `form:"low_stock"`
	PaginationRequest
}

// SparePartResponse 备件响应
type SparePartResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Quantity    int    `json:"quantity"`
	SafetyStock int    `json:"safety_stock"`
	ExpiresAt   string `json:"expires_at,omitempty"`
}
