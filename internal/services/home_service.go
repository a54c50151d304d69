package services

import (
	"context"
	"sort"
	"time"

	"github.com/echolist/backend-go/internal/authz"
	apperrors "github.com/echolist/backend-go/internal/errors"
	"github.com/echolist/backend-go/internal/models"
	"github.com/echolist/backend-go/internal/repository"
)

const recentlyCompletedLimit = 10

// HomeService 首页聚合服务
// 聚合范围与检索一致：actor 可见的全部分区。
type HomeService struct {
	items    repository.ItemRepository
	resolver *authz.Resolver
}

// HomeFeed 首页三个桶
// Urgent: 未完成任务中优先级 Urgent 或已过期的
// Today: 未完成任务中今天到期的
// RecentlyCompleted: 最近完成的任务，按完成时间倒序
type HomeFeed struct {
	Urgent            []models.Item `json:"urgent"`
	Today             []models.Item `json:"today"`
	RecentlyCompleted []models.Item `json:"recently_completed"`
}

// NewHomeService 创建首页服务
func NewHomeService(items repository.ItemRepository, resolver *authz.Resolver) *HomeService {
	return &HomeService{items: items, resolver: resolver}
}

// Feed 构建首页聚合
func (s *HomeService) Feed(ctx context.Context, actorID uint) (*HomeFeed, error) {
	sectionIDs, err := s.resolver.AccessibleSectionIDs(ctx, actorID)
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to resolve accessible sections").WithCause(err)
	}

	feed := &HomeFeed{
		Urgent:            []models.Item{},
		Today:             []models.Item{},
		RecentlyCompleted: []models.Item{},
	}
	if len(sectionIDs) == 0 {
		return feed, nil
	}

	items, err := s.items.ListBySections(ctx, sectionIDs)
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to load items").WithCause(err)
	}

	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	for _, item := range items {
		if !item.IsTask {
			continue
		}
		if item.IsCompleted {
			feed.RecentlyCompleted = append(feed.RecentlyCompleted, item)
			continue
		}
		overdue := item.DueDate != nil && item.DueDate.Before(now)
		if item.Priority == models.PriorityUrgent || overdue {
			feed.Urgent = append(feed.Urgent, item)
		}
		if item.DueDate != nil && !item.DueDate.Before(dayStart) && item.DueDate.Before(dayEnd) {
			feed.Today = append(feed.Today, item)
		}
	}

	sortByDueDate(feed.Urgent)
	sortByDueDate(feed.Today)

	sort.Slice(feed.RecentlyCompleted, func(i, j int) bool {
		return completionTime(feed.RecentlyCompleted[i]).After(completionTime(feed.RecentlyCompleted[j]))
	})
	if len(feed.RecentlyCompleted) > recentlyCompletedLimit {
		feed.RecentlyCompleted = feed.RecentlyCompleted[:recentlyCompletedLimit]
	}
	return feed, nil
}

// sortByDueDate 截止时间升序，无截止时间的排在最后
func sortByDueDate(items []models.Item) {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i].DueDate, items[j].DueDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}

// completionTime 完成时间近似为最后修改时间，缺失时退回创建时间
func completionTime(item models.Item) time.Time {
	if item.LastModifiedAt != nil {
		return *item.LastModifiedAt
	}
	return item.CreateTime
}
