package dto

// ── 设备模块 DTO ──

// DeviceResponse 设备响应
// 位置为空的设备视为未投放，不出现在区域视图
type DeviceResponse struct {
	ID           string `json:"id"`
	MachineModel string `json:"machine_model,omitempty"`
	Area         string `json:"area,omitempty"`
	PositionX    *int   `json:"position_x,omitempty"`
	PositionY    *int   `json:"position_y,omitempty"`
	Active       bool   `json:"active"`
	Description  string `json:"description,omitempty"`
}

// DeviceHistoryResponse 设备维修历史响应
type DeviceHistoryResponse struct {
	Device   DeviceResponse    `json:"device"`
	Requests []RequestResponse `json:"requests"`
}
