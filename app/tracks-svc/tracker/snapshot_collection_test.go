package tracker

import (
	"sync"
	"testing"

	"github.com/matryer/is"
	"github.com/octalwise/tracks/business/data/rail"
	"github.com/octalwise/tracks/foundation/httpclient"
)

func Test_snapshotCollection(t *testing.T) {
	is := is.New(t)
	collection := makeSnapshotCollection()
	engine := getTestEngine(t)

	is.True(collection.currentSnapshot() == nil)
	schedule, info := collection.currentSchedule()
	is.True(schedule == nil)
	is.Equal(httpclient.RemoteFileInfo{}, info)
	is.Equal(0, len(collection.currentAlerts()))

	first := withVersion(engine.BuildSnapshot(nil, nil, weekdayMorning(t)))
	collection.replaceSnapshot(first)
	is.Equal(first, collection.currentSnapshot())

	//readers holding the previous snapshot keep seeing it after replacement
	held := collection.currentSnapshot()
	second := withVersion(engine.BuildSnapshot(nil, nil, weekdayMorning(t)))
	collection.replaceSnapshot(second)
	is.Equal(first.Version, held.Version)
	is.Equal(second, collection.currentSnapshot())

	table := &rail.Timetable{Trips: make([]rail.Trip, 0), StopTimes: make([]rail.StopTime, 0)}
	newSchedule := engine.NewSchedule(table, nil, weekdayMorning(t))
	collection.replaceSchedule(newSchedule, httpclient.RemoteFileInfo{ETag: "\"abc\""})
	schedule, info = collection.currentSchedule()
	is.Equal(newSchedule, schedule)
	is.Equal("\"abc\"", info.ETag)

	collection.replaceAlerts([]rail.Alert{{Header: "Delays"}})
	is.Equal(1, len(collection.currentAlerts()))
}

func Test_snapshotCollection_concurrentAccess(t *testing.T) {
	collection := makeSnapshotCollection()
	engine := getTestEngine(t)
	now := weekdayMorning(t)

	wg := sync.WaitGroup{}
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			collection.replaceSnapshot(withVersion(engine.BuildSnapshot(nil, nil, now)))
		}()
		go func() {
			defer wg.Done()
			if snapshot := collection.currentSnapshot(); snapshot != nil {
				_ = len(snapshot.Trains)
			}
		}()
	}
	wg.Wait()
	if collection.currentSnapshot() == nil {
		t.Errorf("expected a snapshot after concurrent replacement")
	}
}
