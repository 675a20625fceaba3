package dto

// ── 报修模块 DTO ──

// CreateRequestRequest 创建报修请求
type CreateRequestRequest struct {
	DeviceID      string `json:"device_id"      binding:"required,uuid"`
	RequesterNote string `json:"requester_note" binding:"max=2000"`
}

// ConfirmRequestRequest 报修人确认关闭请求（附反馈）
type ConfirmRequestRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
}

// ReviewRequestRequest 调度受理/驳回请求
type ReviewRequestRequest struct {
	CheckerNote string `json:"checker_note" binding:"max=2000"`
}

// RequestResponse 报修请求响应
type RequestResponse struct {
	ID            string           `json:"id"`
	Status        string           `json:"status"`
	RequesterNote string           `json:"requester_note,omitempty"`
	CheckerNote   string           `json:"checker_note,omitempty"`
	Requester     *AccountResponse `json:"requester,omitempty"`
	Device        *DeviceResponse  `json:"device,omitempty"`
	TaskCount     int              `json:"task_count"`
	CreatedAt     string           `json:"created_at"`
	UpdatedAt     string           `json:"updated_at"`
}

// ConfirmRequestResponse 关闭请求响应：请求与反馈同事务落库
type ConfirmRequestResponse struct {
	Request  RequestResponse  `json:"request"`
	Feedback FeedbackResponse `json:"feedback"`
}

// FeedbackResponse 反馈响应
type FeedbackResponse struct {
	ID        string `json:"id"`
	RequestID string `json:"request_id"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}
