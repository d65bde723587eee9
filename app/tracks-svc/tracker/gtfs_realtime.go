package tracker

import (
	"strconv"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/octalwise/tracks/business/data/rail"
	"google.golang.org/protobuf/proto"
)

// buildFeedMessage creates a GTFS-realtime TripUpdates feed from the running trains in snapshot.
// Trains that are neither live nor located are left out.
func buildFeedMessage(snapshot *Snapshot, now time.Time) *gtfsrt.FeedMessage {
	feedMessage := gtfsrt.FeedMessage{
		Header: &gtfsrt.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Incrementality:      gtfsrt.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(uint64(now.Unix())),
		},
		Entity: make([]*gtfsrt.FeedEntity, 0),
	}
	if snapshot == nil {
		return &feedMessage
	}
	for i := range snapshot.Trains {
		train := &snapshot.Trains[i]
		if !train.Live && train.Location == nil {
			continue
		}
		feedMessage.Entity = append(feedMessage.Entity, makeTripUpdateFeedEntity(train, snapshot.Timestamp))
	}
	return &feedMessage
}

// makeTripUpdateFeedEntity creates gtfsrt.FeedEntity with a TripUpdate for train
func makeTripUpdateFeedEntity(train *rail.Train, timestamp int64) *gtfsrt.FeedEntity {
	tripId := strconv.Itoa(train.Id)
	directionId := uint32(0)
	if train.Direction == rail.South {
		directionId = 1
	}
	stopTimeUpdates := make([]*gtfsrt.TripUpdate_StopTimeUpdate, 0, len(train.Stops))
	for _, stop := range train.Stops {
		stopTimeUpdates = append(stopTimeUpdates, &gtfsrt.TripUpdate_StopTimeUpdate{
			StopId:               proto.String(strconv.Itoa(stop.StopId)),
			ScheduleRelationship: gtfsrt.TripUpdate_StopTimeUpdate_SCHEDULED.Enum(),
			Arrival: &gtfsrt.TripUpdate_StopTimeEvent{
				Time:  proto.Int64(stop.Expected.Unix()),
				Delay: proto.Int32(int32(stop.Delay() / time.Second)),
			},
		})
	}
	tripUpdate := gtfsrt.TripUpdate{
		Trip: &gtfsrt.TripDescriptor{
			TripId:               proto.String(tripId),
			RouteId:              proto.String(train.Route),
			DirectionId:          proto.Uint32(directionId),
			ScheduleRelationship: gtfsrt.TripDescriptor_SCHEDULED.Enum(),
		},
		StopTimeUpdate: stopTimeUpdates,
		Timestamp:      proto.Uint64(uint64(timestamp)),
	}
	if train.Live {
		//trains run as their trip number
		tripUpdate.Vehicle = &gtfsrt.VehicleDescriptor{
			Id: proto.String(tripId),
		}
	}
	return &gtfsrt.FeedEntity{
		Id:         proto.String(tripId),
		TripUpdate: &tripUpdate,
	}
}
