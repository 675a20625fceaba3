package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/Sang-Dang/MMMS-Backend/internal/dto"
	"github.com/Sang-Dang/MMMS-Backend/internal/model"
)

func newRequestFixture() (*memStore, RequestService, *captureNotifier) {
	s := newMemStore()
	repo := newMemRepo(s)
	notifier := &captureNotifier{}
	svc := NewRequestService(repo, notifier, zap.NewNop())

	s.accounts["head-1"] = &model.Account{AccountID: "head-1", Username: "head1", Name: "王主管", Role: model.RoleHead}
	s.accounts["staff-1"] = &model.Account{AccountID: "staff-1", Username: "staff1", Name: "李调度", Role: model.RoleHeadStaff}
	s.devices["dev-1"] = &model.Device{DeviceID: "dev-1", MachineModelID: "mm-1", Active: true}

	return s, svc, notifier
}

func TestRequestCreate(t *testing.T) {
	_, svc, notifier := newRequestFixture()

	resp, err := svc.Create(context.Background(), &dto.CreateRequestRequest{
		DeviceID:      "dev-1",
		RequesterNote: "主轴异响",
	}, "head-1")
	if err != nil {
		t.Fatalf("Create 失败: %v", err)
	}

	if resp.Status != string(model.RequestStatusPending) {
		t.Errorf("期望状态 PENDING，实际 %s", resp.Status)
	}
	if !notifier.has(model.EventRequestCreated) {
		t.Error("期望发射 request.created 事件")
	}
}

func TestRequestCreate_DuplicateDevice(t *testing.T) {
	_, svc, _ := newRequestFixture()
	ctx := context.Background()

	if _, err := svc.Create(ctx, &dto.CreateRequestRequest{DeviceID: "dev-1"}, "head-1"); err != nil {
		t.Fatalf("首次 Create 失败: %v", err)
	}

	_, err := svc.Create(ctx, &dto.CreateRequestRequest{DeviceID: "dev-1"}, "head-1")
	if !errors.Is(err, ErrRequestDuplicate) {
		t.Errorf("期望 ErrRequestDuplicate，实际: %v", err)
	}
}

func TestRequestCreate_DeviceInactive(t *testing.T) {
	s, svc, _ := newRequestFixture()
	s.devices["dev-1"].Active = false

	_, err := svc.Create(context.Background(), &dto.CreateRequestRequest{DeviceID: "dev-1"}, "head-1")
	if !errors.Is(err, ErrRequestDeviceGone) {
		t.Errorf("期望 ErrRequestDeviceGone，实际: %v", err)
	}
}

func TestRequestReview(t *testing.T) {
	s, svc, notifier := newRequestFixture()
	ctx := context.Background()
	s.requests["req-1"] = &model.Request{RequestID: "req-1", RequesterID: "head-1", DeviceID: "dev-1", Status: model.RequestStatusPending}

	resp, err := svc.Approve(ctx, "req-1", "staff-1", &dto.ReviewRequestRequest{CheckerNote: "已安排"})
	if err != nil {
		t.Fatalf("Approve 失败: %v", err)
	}
	if resp.Status != string(model.RequestStatusInProgress) {
		t.Errorf("期望 IN_PROGRESS，实际 %s", resp.Status)
	}
	if !notifier.has(model.EventRequestApproved) {
		t.Error("期望发射 request.approved 事件")
	}

	// 已受理的请求不能再驳回
	_, err = svc.Reject(ctx, "req-1", "staff-1", &dto.ReviewRequestRequest{})
	if !errors.Is(err, ErrRequestInvalidState) {
		t.Errorf("期望 ErrRequestInvalidState，实际: %v", err)
	}
}

func TestRequestConfirm(t *testing.T) {
	s, svc, _ := newRequestFixture()
	ctx := context.Background()
	s.requests["req-1"] = &model.Request{RequestID: "req-1", RequesterID: "head-1", DeviceID: "dev-1", Status: model.RequestStatusHeadConfirm}

	resp, err := svc.Confirm(ctx, "req-1", "head-1", &dto.ConfirmRequestRequest{Content: "修得很好"})
	if err != nil {
		t.Fatalf("Confirm 失败: %v", err)
	}
	if resp.Request.Status != string(model.RequestStatusClosed) {
		t.Errorf("期望 CLOSED，实际 %s", resp.Request.Status)
	}
	if len(s.feedbacks) != 1 || s.feedbacks[0].Content != "修得很好" {
		t.Error("期望反馈与关闭同事务落库")
	}
}

func TestRequestConfirm_NotOwner(t *testing.T) {
	s, svc, _ := newRequestFixture()
	s.requests["req-1"] = &model.Request{RequestID: "req-1", RequesterID: "head-1", DeviceID: "dev-1", Status: model.RequestStatusHeadConfirm}

	_, err := svc.Confirm(context.Background(), "req-1", "staff-1", &dto.ConfirmRequestRequest{Content: "x"})
	if !errors.Is(err, ErrRequestNotOwner) {
		t.Errorf("期望 ErrRequestNotOwner，实际: %v", err)
	}
}

func TestRequestConfirm_WrongState(t *testing.T) {
	s, svc, _ := newRequestFixture()
	s.requests["req-1"] = &model.Request{RequestID: "req-1", RequesterID: "head-1", DeviceID: "dev-1", Status: model.RequestStatusPending}

	_, err := svc.Confirm(context.Background(), "req-1", "head-1", &dto.ConfirmRequestRequest{Content: "x"})
	if !errors.Is(err, ErrRequestInvalidState) {
		t.Errorf("期望 ErrRequestInvalidState，实际: %v", err)
	}
}

func TestRequestCancel(t *testing.T) {
	s, svc, _ := newRequestFixture()
	ctx := context.Background()
	s.requests["req-1"] = &model.Request{RequestID: "req-1", RequesterID: "head-1", DeviceID: "dev-1", Status: model.RequestStatusInProgress}

	resp, err := svc.Cancel(ctx, "req-1", "head-1")
	if err != nil {
		t.Fatalf("Cancel 失败: %v", err)
	}
	if resp.Status != string(model.RequestStatusHeadCancel) {
		t.Errorf("期望 HEAD_CANCEL，实际 %s", resp.Status)
	}

	// 终态不可重复取消
	_, err = svc.Cancel(ctx, "req-1", "head-1")
	if !errors.Is(err, ErrRequestInvalidState) {
		t.Errorf("期望 ErrRequestInvalidState，实际: %v", err)
	}
}

func TestEvaluateClosure(t *testing.T) {
	s, svc, _ := newRequestFixture()
	ctx := context.Background()
	s.requests["req-1"] = &model.Request{RequestID: "req-1", RequesterID: "head-1", DeviceID: "dev-1", Status: model.RequestStatusInProgress}
	taskID := "task-1"
	s.tasks[taskID] = &model.Task{TaskID: taskID, RequestID: "req-1", DeviceID: "dev-1", Status: model.TaskStatusAssigned}
	s.issues["iss-1"] = &model.Issue{IssueID: "iss-1", RequestID: "req-1", TaskID: &taskID, Status: model.IssueStatusPending}

	// 任务未完成：不推进
	if err := svc.EvaluateClosure(ctx, "req-1"); err != nil {
		t.Fatalf("EvaluateClosure 失败: %v", err)
	}
	if s.requests["req-1"].Status != model.RequestStatusInProgress {
		t.Errorf("任务未完成不应推进，实际 %s", s.requests["req-1"].Status)
	}

	// 任务完成但故障仍 PENDING：不推进
	s.tasks[taskID].Status = model.TaskStatusCompleted
	if err := svc.EvaluateClosure(ctx, "req-1"); err != nil {
		t.Fatalf("EvaluateClosure 失败: %v", err)
	}
	if s.requests["req-1"].Status != model.RequestStatusInProgress {
		t.Errorf("故障未处理不应推进，实际 %s", s.requests["req-1"].Status)
	}

	// 故障处理完：推进到 HEAD_CONFIRM
	s.issues["iss-1"].Status = model.IssueStatusResolved
	if err := svc.EvaluateClosure(ctx, "req-1"); err != nil {
		t.Fatalf("EvaluateClosure 失败: %v", err)
	}
	if s.requests["req-1"].Status != model.RequestStatusHeadConfirm {
		t.Errorf("期望 HEAD_CONFIRM，实际 %s", s.requests["req-1"].Status)
	}
}

func TestEvaluateClosure_AllCancelled(t *testing.T) {
	s, svc, _ := newRequestFixture()
	s.requests["req-1"] = &model.Request{RequestID: "req-1", RequesterID: "head-1", DeviceID: "dev-1", Status: model.RequestStatusInProgress}
	s.tasks["task-1"] = &model.Task{TaskID: "task-1", RequestID: "req-1", DeviceID: "dev-1", Status: model.TaskStatusCancelled}

	if err := svc.EvaluateClosure(context.Background(), "req-1"); err != nil {
		t.Fatalf("EvaluateClosure 失败: %v", err)
	}
	if s.requests["req-1"].Status != model.RequestStatusInProgress {
		t.Errorf("全部任务被取消不应推进，实际 %s", s.requests["req-1"].Status)
	}
}
