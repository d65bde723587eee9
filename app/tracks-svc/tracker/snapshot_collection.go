package tracker

import (
	"sync"

	"github.com/octalwise/tracks/business/data/rail"
	"github.com/octalwise/tracks/foundation/httpclient"
)

// snapshotCollection holds the current Snapshot, Schedule and alerts and provides thread safe access to them.
// Values are only ever replaced, never modified in place.
type snapshotCollection struct {
	mu       sync.Mutex
	snapshot *Snapshot
	schedule *Schedule
	//timetableInfo identifies the version of the remote timetable document schedule was built from
	timetableInfo httpclient.RemoteFileInfo
	alerts        []rail.Alert
}

// makeSnapshotCollection snapshotCollection factory
func makeSnapshotCollection() *snapshotCollection {
	return &snapshotCollection{
		alerts: make([]rail.Alert, 0),
	}
}

// replaceSnapshot stores snapshot as the current one
func (c *snapshotCollection) replaceSnapshot(snapshot *Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = snapshot
}

// currentSnapshot returns the current Snapshot, nil until the first one is built
func (c *snapshotCollection) currentSnapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// replaceSchedule stores schedule built from the timetable document described by info
func (c *snapshotCollection) replaceSchedule(schedule *Schedule, info httpclient.RemoteFileInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schedule = schedule
	c.timetableInfo = info
}

// currentSchedule returns the current Schedule and the remote timetable version it was built from
func (c *snapshotCollection) currentSchedule() (*Schedule, httpclient.RemoteFileInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.schedule, c.timetableInfo
}

// replaceAlerts stores alerts as the current ones
func (c *snapshotCollection) replaceAlerts(alerts []rail.Alert) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = alerts
}

// currentAlerts returns the current alerts
func (c *snapshotCollection) currentAlerts() []rail.Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alerts
}
