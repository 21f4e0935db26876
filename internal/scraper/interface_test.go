package scraper

import (
	"testing"

	"jobradar/pkg/models"
)

func TestQueryFromProfile(t *testing.T) {
	tests := []struct {
		name    string
		profile models.SearchProfile
		want    models.SearchQuery
	}{
		{
			name: "title and keywords joined",
			profile: models.SearchProfile{
				Title:    "Software Engineer",
				Keywords: []string{"golang", "kubernetes"},
				Location: models.LocationCriteria{City: "London"},
			},
			want: models.SearchQuery{What: "Software Engineer golang kubernetes", Where: "London"},
		},
		{
			name: "remote profile drops location term",
			profile: models.SearchProfile{
				Title:    "Software Engineer",
				Location: models.LocationCriteria{City: "London", RemoteAllowed: true},
			},
			want: models.SearchQuery{What: "Software Engineer"},
		},
		{
			name: "state used when city absent",
			profile: models.SearchProfile{
				Title:    "Analyst",
				Location: models.LocationCriteria{State: "California"},
			},
			want: models.SearchQuery{What: "Analyst", Where: "California"},
		},
		{
			name:    "empty profile",
			profile: models.SearchProfile{},
			want:    models.SearchQuery{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := QueryFromProfile(tt.profile)
			if got != tt.want {
				t.Errorf("QueryFromProfile() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
