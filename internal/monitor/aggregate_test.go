package monitor

import (
	"context"
	"testing"

	hosttest "github.com/rileyhilliard/nekowatch/internal/host/testing"
	"github.com/rileyhilliard/nekowatch/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAverage(t *testing.T) {
	samples := make([]store.LoadSample, 0, store.MinuteRing)
	for i := 0; i < 58; i++ {
		samples = append(samples, store.LoadSample{CPU: 50, Mem: 20, Swap: 2, IBW: 100, OBW: 10})
	}
	samples = append(samples, store.NoDataSample(), store.NoDataSample())

	assert.Equal(t, store.LoadSample{CPU: 50, Mem: 20, Swap: 2, IBW: 100, OBW: 10}, average(samples))

	none := make([]store.LoadSample, store.MinuteRing)
	for i := range none {
		none[i] = store.NoDataSample()
	}
	assert.Equal(t, store.NoDataSample(), average(none))
}

func TestAverage_MixedValues(t *testing.T) {
	samples := []store.LoadSample{
		{CPU: 10, Mem: 1}, {CPU: 30, Mem: 3}, store.NoDataSample(),
	}
	assert.Equal(t, store.LoadSample{CPU: 20, Mem: 2}, average(samples))
}

func TestSampleOf(t *testing.T) {
	assert.Equal(t, store.NoDataSample(), sampleOf(Snapshot{}, false))
	assert.Equal(t, store.NoDataSample(), sampleOf(Snapshot{Name: "x"}, true))

	p := payload(0.25, 1, 1)
	got := sampleOf(Snapshot{Name: "x", Stat: &p}, true)
	assert.Equal(t, store.LoadSample{CPU: 25, Mem: 40, Swap: 10, IBW: 5, OBW: 7}, got)
}

func TestAggregator_MinuteAndHourJobs(t *testing.T) {
	ctx := context.Background()
	reg := hosttest.NewFakeRegistry(
		hosttest.Host("a", "alpha", "10.0.0.1", 10086),
		hosttest.Host("b", "beta", "10.0.0.2", 10086),
	)
	table := NewStateTable()
	p := payload(0.5, 1, 1)
	table.Put("a", Snapshot{Name: "alpha", Stat: &p})

	mem := store.NewMemory()
	agg := NewAggregator(reg, table, mem, nil)

	for i := 0; i < store.MinuteRing; i++ {
		agg.MinuteJob(ctx)
	}
	minutes, err := mem.Minutes(ctx, "a")
	require.NoError(t, err)
	require.Len(t, minutes, store.MinuteRing)
	assert.Equal(t, 50.0, minutes[0].CPU)

	minutes, err = mem.Minutes(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, store.NoDataSample(), minutes[store.MinuteRing-1])

	require.NoError(t, mem.AddTraffic(ctx, "a", store.Delta{In: 9, Out: 9}))
	agg.HourJob(ctx)

	hours, err := mem.Hours(ctx, "a")
	require.NoError(t, err)
	require.Len(t, hours, store.HourRing)
	assert.Equal(t, store.LoadSample{CPU: 50, Mem: 40, Swap: 10, IBW: 5, OBW: 7}, hours[store.HourRing-1])
	assert.Equal(t, store.LoadSample{}, hours[0], "front padding")

	hours, _ = mem.Hours(ctx, "b")
	assert.Equal(t, store.NoDataSample(), hours[store.HourRing-1])

	tr, _ := mem.Traffic(ctx, "a")
	assert.Equal(t, store.Delta{In: 9, Out: 9}, tr.Hours[store.TrafficHours-2])
	assert.Equal(t, store.Delta{}, tr.Hours[store.TrafficHours-1])
}

func TestAggregator_HourJobOverPartialRing(t *testing.T) {
	ctx := context.Background()
	reg := hosttest.NewFakeRegistry(hosttest.Host("a", "alpha", "10.0.0.1", 10086))
	mem := store.NewMemory()
	agg := NewAggregator(reg, NewStateTable(), mem, nil)

	for i := 0; i < 58; i++ {
		require.NoError(t, mem.ShiftMinute(ctx, "a", store.LoadSample{CPU: 80, Mem: 60, Swap: 0, IBW: 10, OBW: 20}))
	}
	require.NoError(t, mem.ShiftMinute(ctx, "a", store.NoDataSample()))
	require.NoError(t, mem.ShiftMinute(ctx, "a", store.NoDataSample()))

	agg.HourJob(ctx)
	hours, _ := mem.Hours(ctx, "a")
	assert.Equal(t, store.LoadSample{CPU: 80, Mem: 60, Swap: 0, IBW: 10, OBW: 20}, hours[store.HourRing-1])
}

func TestAggregator_DayAndMonth(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	agg := NewAggregator(hosttest.NewFakeRegistry(), NewStateTable(), mem, nil)
	require.NoError(t, mem.AddTraffic(ctx, "a", store.Delta{In: 1}))

	agg.DayJob(ctx)
	tr, _ := mem.Traffic(ctx, "a")
	assert.Equal(t, store.Delta{In: 1}, tr.Days[store.TrafficDays-2])
	assert.Equal(t, store.Delta{In: 1}, tr.Months[store.TrafficMonths-1])

	agg.MonthJob(ctx)
	tr, _ = mem.Traffic(ctx, "a")
	assert.Equal(t, store.Delta{In: 1}, tr.Months[store.TrafficMonths-2])
	assert.Len(t, tr.Months, store.TrafficMonths)
}

func TestAggregator_Specs(t *testing.T) {
	assert.NoError(t, MinuteSpec.Validate())
	assert.NoError(t, HourSpec.Validate())
	assert.NoError(t, DaySpec.Validate())
	assert.NoError(t, MonthSpec.Validate())
	assert.Equal(t, 1, MonthSpec.Date)
	assert.Equal(t, 4, DaySpec.Hour)
}
