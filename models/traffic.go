package models

import (
	"time"
)

// TrafficReport model - a point-in-time congestion report feeding the heatmap
type TrafficReport struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Lat             float64   `gorm:"column:lat" json:"lat"`
	Lng             float64   `gorm:"column:lng" json:"lng"`
	CongestionLevel int       `gorm:"column:congestion_level" json:"congestionLevel"` // 0-100
	AvgSpeedKmh     *float64  `gorm:"column:avg_speed_kmh" json:"avgSpeedKmh,omitempty"`
	RoadName        *string   `gorm:"column:road_name" json:"roadName,omitempty"`
	ReporterID      *uint     `gorm:"column:reporter_id;index" json:"reporterId,omitempty"`
	CreatedAt       time.Time `gorm:"column:created_at;default:CURRENT_TIMESTAMP;index" json:"createdAt"`
}

func (TrafficReport) TableName() string {
	return "traffic_reports"
}

// AutoCaptureStat model - one row per user, counters only ever incremented
type AutoCaptureStat struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID            uint      `gorm:"column:user_id;uniqueIndex;not null" json:"userId"`
	VideosCaptured    int64     `gorm:"column:videos_captured;default:0" json:"videosCaptured"`
	IncidentsDetected int64     `gorm:"column:incidents_detected;default:0" json:"incidentsDetected"`
	BytesUploaded     int64     `gorm:"column:bytes_uploaded;default:0" json:"bytesUploaded"`
	CreatedAt         time.Time `gorm:"column:created_at;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (AutoCaptureStat) TableName() string {
	return "auto_capture_stats"
}
