//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Sang-Dang/MMMS-Backend/internal/model"
	"github.com/Sang-Dang/MMMS-Backend/internal/repository"
	pkgerrors "github.com/Sang-Dang/MMMS-Backend/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=mmms password=mmms_password dbname=mmms_test sslmode=disable TimeZone=Asia/Ho_Chi_Minh"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	// 自动迁移测试表结构
	err = testDB.AutoMigrate(
		&model.Account{},
		&model.Area{},
		&model.MachineModel{},
		&model.Device{},
		&model.SparePart{},
		&model.TypeError{},
		&model.Request{},
		&model.Feedback{},
		&model.Task{},
		&model.Issue{},
		&model.IssueSparePart{},
		&model.ExportTicket{},
		&model.Notification{},
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "AutoMigrate 失败: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.Exit(code)
}

// setupTestData 创建基础测试数据并返回清理函数
func setupTestData(t *testing.T) (account *model.Account, device *model.Device, part *model.SparePart, cleanup func()) {
	t.Helper()
	ctx := context.Background()

	mm := &model.MachineModel{
		Name: fmt.Sprintf("测试机型-%d", time.Now().UnixNano()),
	}
	if err := testDB.WithContext(ctx).Create(mm).Error; err != nil {
		t.Fatalf("创建机型失败: %v", err)
	}

	account = &model.Account{
		Username:     fmt.Sprintf("head%d", time.Now().UnixNano()),
		PasswordHash: "$2a$10$placeholder",
		Name:         "测试主管",
		Role:         model.RoleHead,
	}
	if err := testDB.WithContext(ctx).Create(account).Error; err != nil {
		t.Fatalf("创建账号失败: %v", err)
	}

	device = &model.Device{
		MachineModelID: mm.MachineModelID,
		Active:         true,
	}
	if err := testDB.WithContext(ctx).Create(device).Error; err != nil {
		t.Fatalf("创建设备失败: %v", err)
	}

	part = &model.SparePart{
		MachineModelID: mm.MachineModelID,
		Name:           fmt.Sprintf("测试备件-%d", time.Now().UnixNano()),
		Quantity:       10,
		SafetyStock:    3,
	}
	if err := testDB.WithContext(ctx).Create(part).Error; err != nil {
		t.Fatalf("创建备件失败: %v", err)
	}

	cleanup = func() {
		testDB.Unscoped().Where("spare_part_id = ?", part.SparePartID).Delete(&model.SparePart{})
		testDB.Unscoped().Where("device_id = ?", device.DeviceID).Delete(&model.Device{})
		testDB.Unscoped().Where("account_id = ?", account.AccountID).Delete(&model.Account{})
		testDB.Unscoped().Where("machine_model_id = ?", mm.MachineModelID).Delete(&model.MachineModel{})
	}
	return
}

// ═══════════════════════════════════════════════════════════
// Test: Transaction Rollback / Commit
// ═══════════════════════════════════════════════════════════

func TestTransaction_Rollback(t *testing.T) {
	account, device, _, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx 失败: %v", err)
	}
	txRepo := repo.WithTx(tx)

	req := &model.Request{
		RequesterID: account.AccountID,
		DeviceID:    device.DeviceID,
		Status:      model.RequestStatusPending,
	}
	if err := txRepo.Request.Create(ctx, req); err != nil {
		tx.Rollback()
		t.Fatalf("事务内创建 Request 失败: %v", err)
	}

	tx.Rollback()

	// 验证数据未持久化
	_, err = repo.Request.GetByID(ctx, req.RequestID)
	if err == nil {
		testDB.Unscoped().Where("request_id = ?", req.RequestID).Delete(&model.Request{})
		t.Fatal("期望回滚后查不到 Request，但实际查到了")
	}
}

func TestTransaction_Commit(t *testing.T) {
	account, device, _, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx 失败: %v", err)
	}
	txRepo := repo.WithTx(tx)

	req := &model.Request{
		RequesterID: account.AccountID,
		DeviceID:    device.DeviceID,
		Status:      model.RequestStatusPending,
	}
	if err := txRepo.Request.Create(ctx, req); err != nil {
		tx.Rollback()
		t.Fatalf("事务内创建 Request 失败: %v", err)
	}

	if err := tx.Commit().Error; err != nil {
		t.Fatalf("Commit 失败: %v", err)
	}
	defer testDB.Unscoped().Where("request_id = ?", req.RequestID).Delete(&model.Request{})

	found, err := repo.Request.GetByID(ctx, req.RequestID)
	if err != nil {
		t.Fatalf("提交后查询 Request 失败: %v", err)
	}
	if found.RequestID != req.RequestID {
		t.Errorf("ID 不匹配: expected %s, got %s", req.RequestID, found.RequestID)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Optimistic Lock
// ═══════════════════════════════════════════════════════════

func TestOptimisticLock_Request_ConflictDetected(t *testing.T) {
	account, device, _, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	req := &model.Request{
		RequesterID: account.AccountID,
		DeviceID:    device.DeviceID,
		Status:      model.RequestStatusPending,
	}
	if err := repo.Request.Create(ctx, req); err != nil {
		t.Fatalf("创建 Request 失败: %v", err)
	}
	defer testDB.Unscoped().Where("request_id = ?", req.RequestID).Delete(&model.Request{})

	// 模拟并发：获取两份副本
	copy1, _ := repo.Request.GetByID(ctx, req.RequestID)
	copy2, _ := repo.Request.GetByID(ctx, req.RequestID)

	copy1.Status = model.RequestStatusInProgress
	if err := repo.Request.Update(ctx, copy1); err != nil {
		t.Fatalf("第一次更新应成功: %v", err)
	}

	// 第二次更新应失败（version 已过期）
	copy2.Status = model.RequestStatusRejected
	err := repo.Request.Update(ctx, copy2)
	if err == nil {
		t.Fatal("期望乐观锁冲突错误，但更新成功了")
	}
	if err != pkgerrors.ErrOptimisticLock {
		t.Errorf("期望 ErrOptimisticLock，得到: %v", err)
	}
}

func TestOptimisticLock_VersionIncrement(t *testing.T) {
	account, device, _, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	req := &model.Request{
		RequesterID: account.AccountID,
		DeviceID:    device.DeviceID,
		Status:      model.RequestStatusPending,
	}
	if err := repo.Request.Create(ctx, req); err != nil {
		t.Fatalf("创建 Request 失败: %v", err)
	}
	defer testDB.Unscoped().Where("request_id = ?", req.RequestID).Delete(&model.Request{})

	if req.Version != 1 {
		t.Errorf("初始 version 应为 1，得到: %d", req.Version)
	}

	got, _ := repo.Request.GetByID(ctx, req.RequestID)
	got.Status = model.RequestStatusInProgress
	if err := repo.Request.Update(ctx, got); err != nil {
		t.Fatalf("更新失败: %v", err)
	}

	final, _ := repo.Request.GetByID(ctx, req.RequestID)
	if final.Version != 2 {
		t.Errorf("期望 version=2，得到: %d", final.Version)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Conditional Stock Debit
// ═══════════════════════════════════════════════════════════

func TestSparePart_Debit(t *testing.T) {
	_, _, part, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	// 库存 10，扣 4
	if err := repo.SparePart.Debit(ctx, part.SparePartID, 4); err != nil {
		t.Fatalf("扣减应成功: %v", err)
	}

	got, _ := repo.SparePart.GetByID(ctx, part.SparePartID)
	if got.Quantity != 6 {
		t.Errorf("期望余量 6，得到: %d", got.Quantity)
	}

	// 余量 6，扣 7 应失败且库存不变
	err := repo.SparePart.Debit(ctx, part.SparePartID, 7)
	if err != pkgerrors.ErrStockInsufficient {
		t.Errorf("期望 ErrStockInsufficient，得到: %v", err)
	}
	got, _ = repo.SparePart.GetByID(ctx, part.SparePartID)
	if got.Quantity != 6 {
		t.Errorf("失败的扣减不应改动库存，得到: %d", got.Quantity)
	}
}

func TestSparePart_Restock(t *testing.T) {
	_, _, part, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	if err := repo.SparePart.Restock(ctx, part.SparePartID, 5); err != nil {
		t.Fatalf("补货应成功: %v", err)
	}

	got, _ := repo.SparePart.GetByID(ctx, part.SparePartID)
	if got.Quantity != 15 {
		t.Errorf("期望余量 15，得到: %d", got.Quantity)
	}

	// 不存在的备件
	if err := repo.SparePart.Restock(ctx, "00000000-0000-0000-0000-000000000000", 1); err != gorm.ErrRecordNotFound {
		t.Errorf("期望 ErrRecordNotFound，得到: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Active Request per Device
// ═══════════════════════════════════════════════════════════

func TestRequest_GetActiveByDevice(t *testing.T) {
	account, device, _, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	// 关闭态的请求不算活动
	closed := &model.Request{
		RequesterID: account.AccountID,
		DeviceID:    device.DeviceID,
		Status:      model.RequestStatusClosed,
	}
	if err := repo.Request.Create(ctx, closed); err != nil {
		t.Fatalf("创建 Request 失败: %v", err)
	}
	defer testDB.Unscoped().Where("request_id = ?", closed.RequestID).Delete(&model.Request{})

	if _, err := repo.Request.GetActiveByDevice(ctx, device.DeviceID); err != gorm.ErrRecordNotFound {
		t.Errorf("只有关闭请求时期望 ErrRecordNotFound，得到: %v", err)
	}

	// PENDING 请求应被查出
	pending := &model.Request{
		RequesterID: account.AccountID,
		DeviceID:    device.DeviceID,
		Status:      model.RequestStatusPending,
	}
	if err := repo.Request.Create(ctx, pending); err != nil {
		t.Fatalf("创建 Request 失败: %v", err)
	}
	defer testDB.Unscoped().Where("request_id = ?", pending.RequestID).Delete(&model.Request{})

	found, err := repo.Request.GetActiveByDevice(ctx, device.DeviceID)
	if err != nil {
		t.Fatalf("GetActiveByDevice 失败: %v", err)
	}
	if found.RequestID != pending.RequestID {
		t.Errorf("期望查到 PENDING 请求，得到: %s", found.RequestID)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Active Export Ticket per Task
// ═══════════════════════════════════════════════════════════

func TestExport_GetActiveByTask(t *testing.T) {
	account, device, _, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	req := &model.Request{
		RequesterID: account.AccountID,
		DeviceID:    device.DeviceID,
		Status:      model.RequestStatusInProgress,
	}
	if err := repo.Request.Create(ctx, req); err != nil {
		t.Fatalf("创建 Request 失败: %v", err)
	}
	defer testDB.Unscoped().Where("request_id = ?", req.RequestID).Delete(&model.Request{})

	task := &model.Task{
		RequestID: req.RequestID,
		DeviceID:  device.DeviceID,
		Status:    model.TaskStatusAwaitingFixer,
		Type:      model.TaskTypeRepair,
	}
	if err := repo.Task.Create(ctx, task); err != nil {
		t.Fatalf("创建 Task 失败: %v", err)
	}
	defer testDB.Unscoped().Where("task_id = ?", task.TaskID).Delete(&model.Task{})

	// 已取消的出库单不算活动
	cancelled := &model.ExportTicket{
		TaskID:     task.TaskID,
		ExportType: model.ExportTypeSparePart,
		Detail:     model.ExportDetail{IssueIDs: []string{"00000000-0000-0000-0000-000000000000"}},
		Status:     model.ExportStatusCancel,
	}
	if err := repo.Export.Create(ctx, cancelled); err != nil {
		t.Fatalf("创建 ExportTicket 失败: %v", err)
	}
	defer testDB.Unscoped().Where("ticket_id = ?", cancelled.TicketID).Delete(&model.ExportTicket{})

	if _, err := repo.Export.GetActiveByTask(ctx, task.TaskID); err != gorm.ErrRecordNotFound {
		t.Errorf("只有已取消出库单时期望 ErrRecordNotFound，得到: %v", err)
	}

	waiting := &model.ExportTicket{
		TaskID:     task.TaskID,
		ExportType: model.ExportTypeSparePart,
		Detail:     model.ExportDetail{IssueIDs: []string{"00000000-0000-0000-0000-000000000000"}},
		Status:     model.ExportStatusWaiting,
	}
	if err := repo.Export.Create(ctx, waiting); err != nil {
		t.Fatalf("创建 ExportTicket 失败: %v", err)
	}
	defer testDB.Unscoped().Where("ticket_id = ?", waiting.TicketID).Delete(&model.ExportTicket{})

	found, err := repo.Export.GetActiveByTask(ctx, task.TaskID)
	if err != nil {
		t.Fatalf("GetActiveByTask 失败: %v", err)
	}
	if found.TicketID != waiting.TicketID {
		t.Errorf("期望查到 WAITING 出库单，得到: %s", found.TicketID)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Issue Bind / Release
// ═══════════════════════════════════════════════════════════

func TestIssue_BindAndRelease(t *testing.T) {
	account, device, _, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	req := &model.Request{
		RequesterID: account.AccountID,
		DeviceID:    device.DeviceID,
		Status:      model.RequestStatusInProgress,
	}
	if err := repo.Request.Create(ctx, req); err != nil {
		t.Fatalf("创建 Request 失败: %v", err)
	}
	defer testDB.Unscoped().Where("request_id = ?", req.RequestID).Delete(&model.Request{})

	te := &model.TypeError{
		MachineModelID: device.MachineModelID,
		Name:           "主轴异响",
		Duration:       90,
	}
	if err := testDB.WithContext(ctx).Create(te).Error; err != nil {
		t.Fatalf("创建 TypeError 失败: %v", err)
	}
	defer testDB.Unscoped().Where("type_error_id = ?", te.TypeErrorID).Delete(&model.TypeError{})

	issue := &model.Issue{
		RequestID:   req.RequestID,
		TypeErrorID: te.TypeErrorID,
		FixType:     model.FixTypeReplace,
		Status:      model.IssueStatusPending,
	}
	if err := testDB.WithContext(ctx).Create(issue).Error; err != nil {
		t.Fatalf("创建 Issue 失败: %v", err)
	}
	defer testDB.Unscoped().Where("issue_id = ?", issue.IssueID).Delete(&model.Issue{})

	task := &model.Task{
		RequestID: req.RequestID,
		DeviceID:  device.DeviceID,
		Status:    model.TaskStatusAwaitingFixer,
		Type:      model.TaskTypeRepair,
	}
	if err := repo.Task.Create(ctx, task); err != nil {
		t.Fatalf("创建 Task 失败: %v", err)
	}
	defer testDB.Unscoped().Where("task_id = ?", task.TaskID).Delete(&model.Task{})

	// 绑定
	if err := repo.Issue.BindToTask(ctx, []string{issue.IssueID}, task.TaskID); err != nil {
		t.Fatalf("BindToTask 失败: %v", err)
	}
	bound, err := repo.Issue.ListByTask(ctx, task.TaskID)
	if err != nil {
		t.Fatalf("ListByTask 失败: %v", err)
	}
	if len(bound) != 1 {
		t.Fatalf("期望 1 条绑定故障，得到 %d", len(bound))
	}

	// 释放：task_id 置空，故障本身保留
	if err := repo.Issue.ReleaseByTask(ctx, task.TaskID); err != nil {
		t.Fatalf("ReleaseByTask 失败: %v", err)
	}
	released, _ := repo.Issue.ListByTask(ctx, task.TaskID)
	if len(released) != 0 {
		t.Errorf("释放后期望 0 条绑定故障，得到 %d", len(released))
	}
	remaining, err := repo.Issue.ListByIDs(ctx, []string{issue.IssueID})
	if err != nil || len(remaining) != 1 {
		t.Errorf("释放后故障本身应保留: err=%v, len=%d", err, len(remaining))
	}
	if remaining[0].TaskID != nil {
		t.Error("释放后 task_id 应为空")
	}
}
