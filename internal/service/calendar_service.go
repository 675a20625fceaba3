package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Sang-Dang/MMMS-Backend/internal/model"
	"github.com/Sang-Dang/MMMS-Backend/internal/repository"
)

var ErrCalendarFixerInvalid = errors.New("维修工不存在或角色不符")

// defaultTaskDuration 故障目录无预估时长时的兜底值
const defaultTaskDuration = 2 * time.Hour

// CalendarService 维修工日历业务接口
//
// 把维修工名下已派工任务导出为 iCalendar（.ics），
// 供维修工订阅到手机日历。每个任务一个 VEVENT，
// 起始于派工日期，时长取各故障预估处理时长之和。
type CalendarService interface {
	FixerCalendar(ctx context.Context, fixerID string) (*bytes.Buffer, string, error)
}

type calendarService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(repo *repository.Repository, logger *zap.Logger) CalendarService {
	return &calendarService{
		repo:   repo,
		logger: logger,
	}
}

func (s *calendarService) FixerCalendar(ctx context.Context, fixerID string) (*bytes.Buffer, string, error) {
	fixer, err := s.repo.Account.GetByID(ctx, fixerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrCalendarFixerInvalid
		}
		return nil, "", err
	}
	if fixer.Role != model.RoleStaff {
		return nil, "", ErrCalendarFixerInvalid
	}

	tasks, err := s.repo.Task.ListAssignedByFixer(ctx, fixerID)
	if err != nil {
		s.logger.Error("查询维修工任务失败", zap.String("fixer_id", fixerID), zap.Error(err))
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//MMMS//Maintenance Calendar//CN")
	cal.SetName(fmt.Sprintf("%s 的维修日历", fixer.Name))

	for i := range tasks {
		t := &tasks[i]
		if t.FixerDate == nil {
			continue
		}

		event := cal.AddEvent(fmt.Sprintf("task-%s@mmms", t.TaskID))
		event.SetCreatedTime(t.CreatedAt)
		event.SetDtStampTime(time.Now())
		event.SetStartAt(*t.FixerDate)
		event.SetEndAt(t.FixerDate.Add(s.taskDuration(t)))

		summary := t.Name
		if summary == "" {
			summary = "维修任务"
		}
		if t.Device != nil && t.Device.MachineModel != nil {
			summary = fmt.Sprintf("%s（%s）", summary, t.Device.MachineModel.Name)
		}
		event.SetSummary(summary)

		if t.Device != nil && t.Device.Area != nil {
			event.SetLocation(t.Device.Area.Name)
		}
		if t.Priority {
			event.SetDescription("优先任务")
		}
	}

	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("fixer-%s.ics", fixerID)
	return buf, filename, nil
}

// taskDuration 各故障预估处理时长（分钟）求和，无目录数据时用兜底值
func (s *calendarService) taskDuration(t *model.Task) time.Duration {
	total := 0
	for i := range t.Issues {
		if t.Issues[i].TypeError != nil {
			total += t.Issues[i].TypeError.Duration
		}
	}
	if total <= 0 {
		return defaultTaskDuration
	}
	return time.Duration(total) * time.Minute
}
