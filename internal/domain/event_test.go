package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventClassify(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	margin := 10 * time.Minute
	hourAgo := now.Add(-time.Hour)
	inAnHour := now.Add(time.Hour)

	tests := []struct {
		name  string
		event Event
		want  LifecycleBucket
	}{
		{
			name:  "initiated regardless of times",
			event: Event{Status: StatusInitiated, StartTime: hourAgo},
			want:  BucketInitiated,
		},
		{
			name:  "removed counts as archived",
			event: Event{Status: StatusRemoved, StartTime: inAnHour},
			want:  BucketArchived,
		},
		{
			name:  "starts after the margin",
			event: Event{Status: StatusScheduled, StartTime: now.Add(11 * time.Minute)},
			want:  BucketUpcoming,
		},
		{
			name:  "starts exactly at the margin boundary",
			event: Event{Status: StatusScheduled, StartTime: now.Add(margin)},
			want:  BucketLive,
		},
		{
			name:  "inside the margin with no archive boundary",
			event: Event{Status: StatusScheduled, StartTime: now.Add(5 * time.Minute)},
			want:  BucketLive,
		},
		{
			name:  "started with future archive boundary",
			event: Event{Status: StatusScheduled, StartTime: hourAgo, ArchiveTime: &inAnHour},
			want:  BucketArchiving,
		},
		{
			name:  "archive boundary passed",
			event: Event{Status: StatusScheduled, StartTime: now.Add(-2 * time.Hour), ArchiveTime: &hourAgo},
			want:  BucketArchived,
		},
		{
			name:  "archive boundary exactly now",
			event: Event{Status: StatusScheduled, StartTime: hourAgo, ArchiveTime: &now},
			want:  BucketArchived,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.Classify(now, margin))
		})
	}
}

func TestUserCan(t *testing.T) {
	assert.False(t, (*User)(nil).Can(CapRequestEvents))
	assert.False(t, (&User{Roles: []string{RoleProducer}}).Can(CapRequestEvents), "inactive")

	super := &User{IsActive: true, IsSuperuser: true}
	assert.True(t, super.Can(CapManageUsers))

	staff := &User{IsActive: true, Roles: []string{RoleStaff}}
	assert.True(t, staff.Can(CapRequestEvents))
	assert.False(t, staff.Can(CapScheduleEvents))
	assert.False(t, staff.Can(CapReviewApprovals))

	reviewer := &User{IsActive: true, GroupIDs: []string{"g-1"}}
	assert.True(t, reviewer.Can(CapReviewApprovals))
	assert.False(t, reviewer.Can(CapManageUsers))
	assert.True(t, reviewer.InGroup("g-1"))
	assert.False(t, reviewer.InGroup("g-2"))
}
