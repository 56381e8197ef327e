package domain

import (
	"time"

	"github.com/paulmach/orb"
)

// ZipData is a reference record for a single 5-digit ZIP.
type ZipData struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	City  string  `json:"city"`
	State string  `json:"state"`
}

// Point returns the record's coordinate in (lon, lat) order.
func (z ZipData) Point() orb.Point {
	return orb.Point{z.Lon, z.Lat}
}

// ZipPoint is a resolved ZIP used for heatmap and marker layers.
type ZipPoint struct {
	Zip   string  `json:"zip"`
	Lon   float64 `json:"lon"`
	Lat   float64 `json:"lat"`
	City  string  `json:"city"`
	State string  `json:"state"`
}

// Lane is a directed origin → destination relationship from one input row.
type Lane struct {
	ID             string    `json:"id"`
	OriginZip      string    `json:"origin_zip"`
	DestinationZip string    `json:"destination_zip"`
	CustomerName   string    `json:"customer_name"`
	Origin         orb.Point `json:"o"`
	Destination    orb.Point `json:"d"`
	Bearing        float64   `json:"bearing"`
	Midpoint       orb.Point `json:"midpoint"`
	DistanceMiles  float64   `json:"distance_miles"`
	Visible        bool      `json:"visible"`
}

// Stats summarizes a single load.
type Stats struct {
	Rows        int                   `json:"rows"`
	Lanes       int                   `json:"lanes"`
	Skipped     int                   `json:"skipped"`
	Resolutions map[ResolveSource]int `json:"resolutions"`
}

// Dataset is the full result of loading one lane file.
type Dataset struct {
	ID                string              `json:"id"`
	FileName          string              `json:"file_name"`
	LoadedAt          time.Time           `json:"loaded_at"`
	Lanes             []Lane              `json:"lanes"`
	PointsAll         []ZipPoint          `json:"points_all"`
	PointsOrigin      []ZipPoint          `json:"points_origin"`
	PointsDestination []ZipPoint          `json:"points_destination"`
	OriginToCustomers map[string][]string `json:"origin_to_customers"`
	InvalidZips       []string            `json:"invalid_zips"`
	Stats             Stats               `json:"stats"`
}
