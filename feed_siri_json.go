package main

import (
	"encoding/json"
	"encoding/xml"
	"time"
)

// SIRI VehicleMonitoring delivery. The same types serve the JSON and XML
// renderings.
type siriDocument struct {
	XMLName         xml.Name            `xml:"http://www.siri.org.uk/siri Siri" json:"-"`
	Version         string              `xml:"version,attr" json:"-"`
	ServiceDelivery siriServiceDelivery `xml:"ServiceDelivery" json:"ServiceDelivery"`
}

type siriServiceDelivery struct {
	ResponseTimestamp         string                `xml:"ResponseTimestamp" json:"ResponseTimestamp"`
	VehicleMonitoringDelivery []siriVehicleDelivery `xml:"VehicleMonitoringDelivery" json:"VehicleMonitoringDelivery"`
}

type siriVehicleDelivery struct {
	Version           string                `xml:"version,attr" json:"-"`
	ResponseTimestamp string                `xml:"ResponseTimestamp" json:"ResponseTimestamp"`
	VehicleActivity   []siriVehicleActivity `xml:"VehicleActivity" json:"VehicleActivity"`
}

type siriVehicleActivity struct {
	RecordedAtTime          string                      `xml:"RecordedAtTime" json:"RecordedAtTime"`
	MonitoredVehicleJourney siriMonitoredVehicleJourney `xml:"MonitoredVehicleJourney" json:"MonitoredVehicleJourney"`
}

type siriMonitoredVehicleJourney struct {
	LineRef         string              `xml:"LineRef,omitempty" json:"LineRef,omitempty"`
	VehicleRef      string              `xml:"VehicleRef" json:"VehicleRef"`
	VehicleLocation siriVehicleLocation `xml:"VehicleLocation" json:"VehicleLocation"`
}

type siriVehicleLocation struct {
	Longitude float64 `xml:"Longitude" json:"Longitude"`
	Latitude  float64 `xml:"Latitude" json:"Latitude"`
}

const siriVersion = "2.0"

func siriDelivery(vehicles []Vehicle, now time.Time) siriDocument {
	ts := now.UTC().Format(time.RFC3339)
	activities := make([]siriVehicleActivity, 0, len(vehicles))
	for _, v := range vehicles {
		activities = append(activities, siriVehicleActivity{
			RecordedAtTime: time.UnixMilli(v.LastUpdate).UTC().Format(time.RFC3339),
			MonitoredVehicleJourney: siriMonitoredVehicleJourney{
				LineRef:    v.Route,
				VehicleRef: v.ID,
				VehicleLocation: siriVehicleLocation{
					Longitude: v.Lon,
					Latitude:  v.Lat,
				},
			},
		})
	}
	return siriDocument{
		Version: siriVersion,
		ServiceDelivery: siriServiceDelivery{
			ResponseTimestamp: ts,
			VehicleMonitoringDelivery: []siriVehicleDelivery{{
				Version:           siriVersion,
				ResponseTimestamp: ts,
				VehicleActivity:   activities,
			}},
		},
	}
}

// encodeSiriJSON wraps the delivery in the top-level "Siri" object most
// SIRI-JSON consumers expect.
func encodeSiriJSON(vehicles []Vehicle, now time.Time) ([]byte, error) {
	return json.Marshal(map[string]siriDocument{"Siri": siriDelivery(vehicles, now)})
}
