package tracker

import "time"

// Visit is one recorded access event. Country is a pointer because the
// column is nullable: a NULL country is its own breakdown bucket, distinct
// from the "Unknown" and "Local" strings.
type Visit struct {
	ID        int64     `json:"id"`
	Project   Project   `json:"project_name"`
	IPAddress string    `json:"ip_address"`
	Country   *string   `json:"country"`
	CreatedAt time.Time `json:"created_at"`
}

// ProjectStats holds the scalar aggregates for one project, recomputed per
// request. UniqueVisitors counts distinct ip_address values; no identity
// beyond IP exists.
type ProjectStats struct {
	Project        Project `json:"project_name"`
	TotalVisits    int64   `json:"total_visits"`
	UniqueVisitors int64   `json:"unique_visitors"`
}

// CountryStats is one row of the per-country breakdown.
type CountryStats struct {
	Country    *string `json:"country"`
	VisitCount int64   `json:"visit_count"`
}

// ProjectDetailedStats is the unscoped single-project view: scalar totals
// plus registry metadata, the country breakdown, and the most recent visits.
type ProjectDetailedStats struct {
	Project        Project        `json:"project_name"`
	Repository     string         `json:"repository"`
	Icon           string         `json:"icon"`
	Description    string         `json:"description"`
	TotalVisits    int64          `json:"total_visits"`
	UniqueVisitors int64          `json:"unique_visitors"`
	CountryStats   []CountryStats `json:"country_stats"`
	RecentVisits   []Visit        `json:"recent_visits"`
}

// TrackResponse is the JSON body returned by the track endpoint.
type TrackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
