package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Shijin-GitH/Leave-Tracker/internal/model"
)

func TestSortAndPage(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	created := func(m int) model.BaseModel { return model.BaseModel{CreatedAt: day(1).Add(time.Duration(m) * time.Minute)} }

	newLeaves := func() []model.LeaveRecord {
		return []model.LeaveRecord{
			{LeaveID: "a", LeaveDate: day(3), BaseModel: created(1)},
			{LeaveID: "b", LeaveDate: day(9), BaseModel: created(2)},
			{LeaveID: "c", LeaveDate: day(3), BaseModel: created(5)},
			{LeaveID: "d", LeaveDate: day(1), BaseModel: created(3)},
		}
	}
	ids := func(leaves []model.LeaveRecord) []string {
		out := make([]string, 0, len(leaves))
		for _, l := range leaves {
			out = append(out, l.LeaveID)
		}
		return out
	}

	tests := []struct {
		name   string
		filter LeaveFilter
		want   []string
	}{
		{"不分页", LeaveFilter{}, []string{"b", "c", "a", "d"}},
		{"第一页", LeaveFilter{Limit: 2}, []string{"b", "c"}},
		{"最后一页不足", LeaveFilter{Offset: 3, Limit: 2}, []string{"d"}},
		{"偏移恰好到末尾", LeaveFilter{Offset: 4, Limit: 2}, []string{}},
		{"偏移超出末尾", LeaveFilter{Offset: 10, Limit: 2}, []string{}},
		{"负偏移按 0 处理", LeaveFilter{Offset: -1, Limit: 1}, []string{"b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, total := sortAndPage(newLeaves(), tt.filter)
			assert.Equal(t, int64(4), total, "total 应为分页前总数")
			assert.Equal(t, tt.want, ids(page))
		})
	}
}

func TestSortAndPage_Empty(t *testing.T) {
	page, total := sortAndPage(nil, LeaveFilter{Offset: 20, Limit: 20})
	assert.Equal(t, int64(0), total)
	assert.Empty(t, page)
}
