package main

import (
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

const gtfsRtVersion = "2.0"

// gtfsRtFeed builds a full-dataset GTFS-Realtime vehicle positions feed.
func gtfsRtFeed(vehicles []Vehicle, now time.Time) *gtfs.FeedMessage {
	feed := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String(gtfsRtVersion),
			Incrementality:      gtfs.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(uint64(now.Unix())),
		},
		Entity: make([]*gtfs.FeedEntity, 0, len(vehicles)),
	}
	for _, v := range vehicles {
		vp := &gtfs.VehiclePosition{
			Vehicle: &gtfs.VehicleDescriptor{
				Id:    proto.String(v.ID),
				Label: proto.String(v.ID),
			},
			Position: &gtfs.Position{
				Latitude:  proto.Float32(float32(v.Lat)),
				Longitude: proto.Float32(float32(v.Lon)),
			},
			Timestamp: proto.Uint64(uint64(v.LastUpdate / 1000)),
		}
		if v.Route != "" {
			vp.Trip = &gtfs.TripDescriptor{RouteId: proto.String(v.Route)}
		}
		feed.Entity = append(feed.Entity, &gtfs.FeedEntity{
			Id:      proto.String(v.ID),
			Vehicle: vp,
		})
	}
	return feed
}

func encodeGtfsRt(vehicles []Vehicle, now time.Time) ([]byte, error) {
	return proto.Marshal(gtfsRtFeed(vehicles, now))
}
