package services

import (
	"context"
	"testing"
	"time"

	"github.com/echolist/backend-go/internal/authz"
	"github.com/echolist/backend-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHomeFeedBuckets(t *testing.T) {
	items := new(MockItemRepo)
	sections := new(MockSectionRepo)
	conns := new(MockConnectionRepo)
	resolver := authz.NewResolver(conns, sections, nil)

	sections.On("ListByOwner", mock.Anything, uint(1)).Return([]models.Section{
		{SectionID: 10, OwnerUserID: 1},
	}, nil)
	conns.On("ListForUser", mock.Anything, uint(1), nilConnType, nilStatus).
		Return([]models.Connection{}, nil)

	now := time.Now()
	yesterday := now.AddDate(0, 0, -1)
	laterToday := now.Add(time.Hour)
	nextWeek := now.AddDate(0, 0, 7)
	earlier := now.Add(-2 * time.Hour)

	items.On("ListBySections", mock.Anything, []uint{10}).Return([]models.Item{
		// 过期任务进 Urgent
		{ItemID: 1, SectionID: 10, IsTask: true, DueDate: &yesterday, Priority: models.PriorityLow},
		// Urgent 优先级无截止时间也进 Urgent
		{ItemID: 2, SectionID: 10, IsTask: true, Priority: models.PriorityUrgent},
		// 今天到期
		{ItemID: 3, SectionID: 10, IsTask: true, DueDate: &laterToday, Priority: models.PriorityMedium},
		// 下周到期，不进任何桶
		{ItemID: 4, SectionID: 10, IsTask: true, DueDate: &nextWeek, Priority: models.PriorityMedium},
		// 已完成任务
		{ItemID: 5, SectionID: 10, IsTask: true, IsCompleted: true, LastModifiedAt: &earlier},
		// 普通笔记不参与聚合
		{ItemID: 6, SectionID: 10, IsTask: false},
	}, nil)

	svc := NewHomeService(items, resolver)
	feed, err := svc.Feed(context.Background(), 1)

	require.NoError(t, err)
	require.Len(t, feed.Urgent, 2)
	// 截止时间升序，无截止时间的在最后
	assert.Equal(t, uint(1), feed.Urgent[0].ItemID)
	assert.Equal(t, uint(2), feed.Urgent[1].ItemID)

	require.Len(t, feed.Today, 1)
	assert.Equal(t, uint(3), feed.Today[0].ItemID)

	require.Len(t, feed.RecentlyCompleted, 1)
	assert.Equal(t, uint(5), feed.RecentlyCompleted[0].ItemID)
}

func TestHomeFeedEmptyWhenNoSections(t *testing.T) {
	items := new(MockItemRepo)
	sections := new(MockSectionRepo)
	conns := new(MockConnectionRepo)
	resolver := authz.NewResolver(conns, sections, nil)

	sections.On("ListByOwner", mock.Anything, uint(1)).Return([]models.Section{}, nil)
	conns.On("ListForUser", mock.Anything, uint(1), nilConnType, nilStatus).
		Return([]models.Connection{}, nil)

	svc := NewHomeService(items, resolver)
	feed, err := svc.Feed(context.Background(), 1)

	require.NoError(t, err)
	assert.Empty(t, feed.Urgent)
	assert.Empty(t, feed.Today)
	assert.Empty(t, feed.RecentlyCompleted)
	items.AssertNotCalled(t, "ListBySections", mock.Anything, mock.Anything)
}

func TestHomeFeedRecentlyCompletedOrderAndCap(t *testing.T) {
	items := new(MockItemRepo)
	sections := new(MockSectionRepo)
	conns := new(MockConnectionRepo)
	resolver := authz.NewResolver(conns, sections, nil)

	sections.On("ListByOwner", mock.Anything, uint(1)).Return([]models.Section{
		{SectionID: 10, OwnerUserID: 1},
	}, nil)
	conns.On("ListForUser", mock.Anything, uint(1), nilConnType, nilStatus).
		Return([]models.Connection{}, nil)

	completed := make([]models.Item, 0, 12)
	base := time.Now().Add(-24 * time.Hour)
	for i := 0; i < 12; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		completed = append(completed, models.Item{
			ItemID: uint(i + 1), SectionID: 10, IsTask: true, IsCompleted: true, LastModifiedAt: &ts,
		})
	}
	items.On("ListBySections", mock.Anything, []uint{10}).Return(completed, nil)

	svc := NewHomeService(items, resolver)
	feed, err := svc.Feed(context.Background(), 1)

	require.NoError(t, err)
	require.Len(t, feed.RecentlyCompleted, recentlyCompletedLimit)
	// 最新完成的排最前
	assert.Equal(t, uint(12), feed.RecentlyCompleted[0].ItemID)
	assert.Equal(t, uint(3), feed.RecentlyCompleted[recentlyCompletedLimit-1].ItemID)
}
