package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Sang-Dang/MMMS-Backend/internal/model"
)

// IssueRepository 故障条目数据访问接口
type IssueRepository interface {
	ListByIDs(ctx context.Context, ids []string) ([]model.Issue, error)
	ListByTask(ctx context.Context, taskID string) ([]model.Issue, error)
	// BindToTask 将一批故障绑定到任务（task_id 置为 taskID）
	BindToTask(ctx context.Context, issueIDs []string, taskID string) error
	// ReleaseByTask 释放任务名下全部故障（task_id 置 null，不删除记录）
	ReleaseByTask(ctx context.Context, taskID string) error
	UpdateStatus(ctx context.Context, issueID string, status model.IssueStatus) error
	CountPendingByRequest(ctx context.Context, requestID string) (int64, error)
}

type issueRepo struct {
	db *gorm.DB
}

// NewIssueRepo 创建 IssueRepository 实现
func NewIssueRepo(db *gorm.DB) IssueRepository {
	return &issueRepo{db: db}
}

func (r *issueRepo) ListByIDs(ctx context.Context, ids []string) ([]model.Issue, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var issues []model.Issue
	err := r.db.WithContext(ctx).
		Preload("TypeError").
		Preload("IssueSpareParts").
		Preload("IssueSpareParts.SparePart").
		Where("issue_id IN ?", ids).
		Find(&issues).Error
	return issues, err
}

func (r *issueRepo) ListByTask(ctx context.Context, taskID string) ([]model.Issue, error) {
	var issues []model.Issue
	err := r.db.WithContext(ctx).
		Preload("TypeError").
		Preload("IssueSpareParts").
		Preload("IssueSpareParts.SparePart").
		Where("task_id = ?", taskID).
		Find(&issues).Error
	return issues, err
}

func (r *issueRepo) BindToTask(ctx context.Context, issueIDs []string, taskID string) error {
	if len(issueIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.Issue{}).
		Where("issue_id IN ?", issueIDs).
		Update("task_id", taskID).Error
}

func (r *issueRepo) ReleaseByTask(ctx context.Context, taskID string) error {
	return r.db.WithContext(ctx).
		Model(&model.Issue{}).
		Where("task_id = ?", taskID).
		Update("task_id", nil).Error
}

func (r *issueRepo) UpdateStatus(ctx context.Context, issueID string, status model.IssueStatus) error {
	return r.db.WithContext(ctx).
		Model(&model.Issue{}).
		Where("issue_id = ?", issueID).
		Update("status", status).Error
}

func (r *issueRepo) CountPendingByRequest(ctx context.Context, requestID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Issue{}).
		Where("request_id = ? AND status = ?", requestID, model.IssueStatusPending).
		Count(&count).Error
	return count, err
}
