package series

import (
	"time"

	"shamal/internal/anidb/episodes"
)

// Record is the series-level metadata derived from a Document.
type Record struct {
	SeriesID        string           `json:"series_id"`
	Name            string           `json:"name"`
	Titles          []episodes.Title `json:"titles,omitempty"`
	Overview        string           `json:"overview,omitempty"`
	Type            string           `json:"type,omitempty"`
	EpisodeCount    int              `json:"episode_count,omitempty"`
	PremiereDate    *time.Time       `json:"premiere_date,omitempty"`
	EndDate         *time.Time       `json:"end_date,omitempty"`
	ProductionYear  *int             `json:"production_year,omitempty"`
	CommunityRating *float64         `json:"community_rating,omitempty"`
	Genres          []string         `json:"genres,omitempty"`
	Studios         []string         `json:"studios,omitempty"`
}

// Record builds the series record, naming it with the localisation policy.
func (d *Document) Record(pref episodes.Preference, preferred string) Record {
	rec := Record{
		SeriesID:        d.SeriesID,
		Titles:          append([]episodes.Title(nil), d.Titles...),
		Overview:        d.Description,
		Type:            d.Type,
		EpisodeCount:    d.EpisodeCount,
		PremiereDate:    d.StartDate,
		EndDate:         d.EndDate,
		CommunityRating: d.Rating,
		Genres:          d.Genres(),
		Studios:         append([]string(nil), d.Studios...),
	}
	if title, ok := episodes.Localize(d.Titles, pref, preferred); ok {
		rec.Name = title.Name
	}
	if d.StartDate != nil {
		year := d.StartDate.Year()
		rec.ProductionYear = &year
	}
	return rec
}
