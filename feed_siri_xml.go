package main

import (
	"encoding/xml"
	"time"
)

func encodeSiriXML(vehicles []Vehicle, now time.Time) ([]byte, error) {
	body, err := xml.MarshalIndent(siriDelivery(vehicles, now), "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
