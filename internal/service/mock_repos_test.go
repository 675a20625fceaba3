package service

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Sang-Dang/MMMS-Backend/internal/model"
	"github.com/Sang-Dang/MMMS-Backend/internal/repository"
	pkgerrors "github.com/Sang-Dang/MMMS-Backend/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// 内存版 Repository（单元测试用）
//
// Repository.db 为 nil 时 BeginTx 返回 nil 事务、WithTx(nil)
// 返回自身，Service 层事务代码可直接跑在这些内存实现上。
// ═══════════════════════════════════════════════════════════

type memStore struct {
	seq           int
	accounts      map[string]*model.Account
	devices       map[string]*model.Device
	requests      map[string]*model.Request
	feedbacks     []*model.Feedback
	tasks         map[string]*model.Task
	issues        map[string]*model.Issue
	parts         map[string]*model.SparePart
	tickets       map[string]*model.ExportTicket
	notifications []*model.Notification
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[string]*model.Account),
		devices:  make(map[string]*model.Device),
		requests: make(map[string]*model.Request),
		tasks:    make(map[string]*model.Task),
		issues:   make(map[string]*model.Issue),
		parts:    make(map[string]*model.SparePart),
		tickets:  make(map[string]*model.ExportTicket),
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

// newMemRepo 构造挂满内存实现的 Repository 聚合
func newMemRepo(s *memStore) *repository.Repository {
	return &repository.Repository{
		Account:      &memAccountRepo{s},
		Device:       &memDeviceRepo{s},
		Request:      &memRequestRepo{s},
		Feedback:     &memFeedbackRepo{s},
		Task:         &memTaskRepo{s},
		Issue:        &memIssueRepo{s},
		SparePart:    &memSparePartRepo{s},
		Export:       &memExportRepo{s},
		Notification: &memNotificationRepo{s},
	}
}

// ── Account ──

type memAccountRepo struct{ s *memStore }

func (r *memAccountRepo) Create(_ context.Context, a *model.Account) error {
	if a.AccountID == "" {
		a.AccountID = r.s.nextID("acc")
	}
	r.s.accounts[a.AccountID] = a
	return nil
}

func (r *memAccountRepo) GetByID(_ context.Context, id string) (*model.Account, error) {
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return a, nil
}

func (r *memAccountRepo) GetByUsername(_ context.Context, username string) (*model.Account, error) {
	for _, a := range r.s.accounts {
		if a.Username == username {
			return a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memAccountRepo) ListByRole(_ context.Context, role string) ([]model.Account, error) {
	var out []model.Account
	for _, a := range r.s.accounts {
		if a.Role == role {
			out = append(out, *a)
		}
	}
	return out, nil
}

// ── Device ──

type memDeviceRepo struct{ s *memStore }

func (r *memDeviceRepo) Create(_ context.Context, d *model.Device) error {
	if d.DeviceID == "" {
		d.DeviceID = r.s.nextID("dev")
	}
	r.s.devices[d.DeviceID] = d
	return nil
}

func (r *memDeviceRepo) GetByID(_ context.Context, id string) (*model.Device, error) {
	d, ok := r.s.devices[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return d, nil
}

func (r *memDeviceRepo) GetForUpdate(ctx context.Context, id string) (*model.Device, error) {
	return r.GetByID(ctx, id)
}

func (r *memDeviceRepo) Update(_ context.Context, d *model.Device) error {
	if _, ok := r.s.devices[d.DeviceID]; !ok {
		return gorm.ErrRecordNotFound
	}
	d.Version++
	r.s.devices[d.DeviceID] = d
	return nil
}

func (r *memDeviceRepo) ListNoPosition(_ context.Context) ([]model.Device, error) {
	var out []model.Device
	for _, d := range r.s.devices {
		if !d.HasPosition() {
			out = append(out, *d)
		}
	}
	return out, nil
}

// ── Request / Feedback ──

type memRequestRepo struct{ s *memStore }

func (r *memRequestRepo) Create(_ context.Context, req *model.Request) error {
	if req.RequestID == "" {
		req.RequestID = r.s.nextID("req")
	}
	req.CreatedAt = time.Now()
	r.s.requests[req.RequestID] = req
	return nil
}

// GetByID 模拟关联预加载：任务与故障从各自 store 组装
func (r *memRequestRepo) GetByID(_ context.Context, id string) (*model.Request, error) {
	req, ok := r.s.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	req.Tasks = nil
	for _, t := range r.s.tasks {
		if t.RequestID == id {
			req.Tasks = append(req.Tasks, *t)
		}
	}
	req.Issues = nil
	for _, i := range r.s.issues {
		if i.RequestID == id {
			req.Issues = append(req.Issues, *i)
		}
	}
	req.Requester = r.s.accounts[req.RequesterID]
	req.Device = r.s.devices[req.DeviceID]
	return req, nil
}

func (r *memRequestRepo) GetActiveByDevice(_ context.Context, deviceID string) (*model.Request, error) {
	for _, req := range r.s.requests {
		if req.DeviceID != deviceID {
			continue
		}
		for _, st := range model.ActiveRequestStatuses {
			if req.Status == st {
				return req, nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memRequestRepo) ListByRequesterSince(_ context.Context, requesterID string, since time.Time) ([]model.Request, error) {
	var out []model.Request
	for _, req := range r.s.requests {
		if req.RequesterID == requesterID && !req.CreatedAt.Before(since) {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (r *memRequestRepo) ListByDevice(_ context.Context, deviceID string) ([]model.Request, error) {
	var out []model.Request
	for _, req := range r.s.requests {
		if req.DeviceID == deviceID {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (r *memRequestRepo) Update(_ context.Context, req *model.Request) error {
	if _, ok := r.s.requests[req.RequestID]; !ok {
		return pkgerrors.ErrOptimisticLock
	}
	req.Version++
	r.s.requests[req.RequestID] = req
	return nil
}

type memFeedbackRepo struct{ s *memStore }

func (r *memFeedbackRepo) Create(_ context.Context, f *model.Feedback) error {
	if f.FeedbackID == "" {
		f.FeedbackID = r.s.nextID("fb")
	}
	r.s.feedbacks = append(r.s.feedbacks, f)
	return nil
}

// ── Task ──

type memTaskRepo struct{ s *memStore }

func (r *memTaskRepo) Create(_ context.Context, t *model.Task) error {
	if t.TaskID == "" {
		t.TaskID = r.s.nextID("task")
	}
	t.CreatedAt = time.Now()
	r.s.tasks[t.TaskID] = t
	return nil
}

func (r *memTaskRepo) GetByID(_ context.Context, id string) (*model.Task, error) {
	t, ok := r.s.tasks[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	t.Issues = nil
	for _, i := range r.s.issues {
		if i.TaskID != nil && *i.TaskID == id {
			t.Issues = append(t.Issues, *i)
		}
	}
	t.Device = r.s.devices[t.DeviceID]
	return t, nil
}

func (r *memTaskRepo) GetForUpdate(_ context.Context, id string) (*model.Task, error) {
	t, ok := r.s.tasks[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return t, nil
}

func (r *memTaskRepo) Update(_ context.Context, t *model.Task) error {
	if _, ok := r.s.tasks[t.TaskID]; !ok {
		return pkgerrors.ErrOptimisticLock
	}
	t.Version++
	r.s.tasks[t.TaskID] = t
	return nil
}

func (r *memTaskRepo) List(_ context.Context, status model.TaskStatus, _, _ int) ([]model.Task, int64, error) {
	var out []model.Task
	for _, t := range r.s.tasks {
		if status == "" || t.Status == status {
			out = append(out, *t)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memTaskRepo) ListAssignedByFixer(_ context.Context, fixerID string) ([]model.Task, error) {
	var out []model.Task
	for _, t := range r.s.tasks {
		if t.FixerID != nil && *t.FixerID == fixerID && t.Status == model.TaskStatusAssigned {
			out = append(out, *t)
		}
	}
	return out, nil
}

// ── Issue ──

type memIssueRepo struct{ s *memStore }

func (r *memIssueRepo) ListByIDs(_ context.Context, ids []string) ([]model.Issue, error) {
	var out []model.Issue
	for _, id := range ids {
		if i, ok := r.s.issues[id]; ok {
			out = append(out, *i)
		}
	}
	return out, nil
}

func (r *memIssueRepo) ListByTask(_ context.Context, taskID string) ([]model.Issue, error) {
	var out []model.Issue
	for _, i := range r.s.issues {
		if i.TaskID != nil && *i.TaskID == taskID {
			out = append(out, *i)
		}
	}
	return out, nil
}

func (r *memIssueRepo) BindToTask(_ context.Context, issueIDs []string, taskID string) error {
	for _, id := range issueIDs {
		if i, ok := r.s.issues[id]; ok {
			tid := taskID
			i.TaskID = &tid
		}
	}
	return nil
}

func (r *memIssueRepo) ReleaseByTask(_ context.Context, taskID string) error {
	for _, i := range r.s.issues {
		if i.TaskID != nil && *i.TaskID == taskID {
			i.TaskID = nil
		}
	}
	return nil
}

func (r *memIssueRepo) UpdateStatus(_ context.Context, issueID string, status model.IssueStatus) error {
	i, ok := r.s.issues[issueID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	i.Status = status
	return nil
}

func (r *memIssueRepo) CountPendingByRequest(_ context.Context, requestID string) (int64, error) {
	var n int64
	for _, i := range r.s.issues {
		if i.RequestID == requestID && i.Status == model.IssueStatusPending {
			n++
		}
	}
	return n, nil
}

// ── SparePart ──

type memSparePartRepo struct{ s *memStore }

func (r *memSparePartRepo) Create(_ context.Context, p *model.SparePart) error {
	if p.SparePartID == "" {
		p.SparePartID = r.s.nextID("sp")
	}
	r.s.parts[p.SparePartID] = p
	return nil
}

func (r *memSparePartRepo) GetByID(_ context.Context, id string) (*model.SparePart, error) {
	p, ok := r.s.parts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *memSparePartRepo) Debit(_ context.Context, id string, qty int) error {
	p, ok := r.s.parts[id]
	if !ok || p.Quantity < qty {
		return pkgerrors.ErrStockInsufficient
	}
	p.Quantity -= qty
	return nil
}

func (r *memSparePartRepo) Restock(_ context.Context, id string, qty int) error {
	p, ok := r.s.parts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Quantity += qty
	return nil
}

func (r *memSparePartRepo) List(_ context.Context, _ string, lowStock bool, _, _ int) ([]model.SparePart, int64, error) {
	var out []model.SparePart
	for _, p := range r.s.parts {
		if lowStock && !(p.SafetyStock > 0 && p.Quantity < p.SafetyStock) {
			continue
		}
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (r *memSparePartRepo) ListLowStock(_ context.Context) ([]model.SparePart, error) {
	out, _, err := r.List(context.Background(), "", true, 0, 0)
	return out, err
}

// ── ExportTicket ──

type memExportRepo struct{ s *memStore }

func (r *memExportRepo) Create(_ context.Context, t *model.ExportTicket) error {
	if t.TicketID == "" {
		t.TicketID = r.s.nextID("tk")
	}
	t.CreatedAt = time.Now()
	r.s.tickets[t.TicketID] = t
	return nil
}

func (r *memExportRepo) GetByID(_ context.Context, id string) (*model.ExportTicket, error) {
	t, ok := r.s.tickets[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return t, nil
}

func (r *memExportRepo) GetActiveByTask(_ context.Context, taskID string) (*model.ExportTicket, error) {
	for _, t := range r.s.tickets {
		if t.TaskID == taskID && t.Status != model.ExportStatusCancel {
			return t, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memExportRepo) Update(_ context.Context, t *model.ExportTicket) error {
	if _, ok := r.s.tickets[t.TicketID]; !ok {
		return pkgerrors.ErrOptimisticLock
	}
	t.Version++
	r.s.tickets[t.TicketID] = t
	return nil
}

func (r *memExportRepo) List(_ context.Context, status model.ExportStatus, _, _ int) ([]model.ExportTicket, int64, error) {
	var out []model.ExportTicket
	for _, t := range r.s.tickets {
		if status == "" || t.Status == status {
			out = append(out, *t)
		}
	}
	return out, int64(len(out)), nil
}

// ── Notification ──

type memNotificationRepo struct{ s *memStore }

func (r *memNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	if n.NotificationID == "" {
		n.NotificationID = r.s.nextID("nt")
	}
	r.s.notifications = append(r.s.notifications, n)
	return nil
}

func (r *memNotificationRepo) ListUnsent(_ context.Context, limit int) ([]model.Notification, error) {
	var out []model.Notification
	for _, n := range r.s.notifications {
		if n.SentAt == nil {
			out = append(out, *n)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *memNotificationRepo) MarkSent(_ context.Context, id string) error {
	for _, n := range r.s.notifications {
		if n.NotificationID == id {
			now := time.Now()
			n.SentAt = &now
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *memNotificationRepo) IncrementAttempts(_ context.Context, id string) error {
	for _, n := range r.s.notifications {
		if n.NotificationID == id {
			n.Attempts++
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// ── 事件捕获 Notifier ──

type captureNotifier struct {
	events []string
}

func (c *captureNotifier) Emit(eventName string, _ string, _ map[string]interface{}) {
	c.events = append(c.events, eventName)
}

func (c *captureNotifier) has(eventName string) bool {
	for _, e := range c.events {
		if e == eventName {
			return true
		}
	}
	return false
}
