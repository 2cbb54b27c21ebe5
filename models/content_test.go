package models_test

import (
	"encoding/json"
	"testing"

	"lanefeed/models"
)

func strptr(s string) *string { return &s }

func TestMergeContentFreshWins(t *testing.T) {
	base := models.ContentItem{
		ID:        550,
		MediaType: models.MediaTypeMovie,
		Title:     "Old Title",
		Overview:  "old overview",
		PosterRef: strptr("/old.jpg"),
		Rating:    6.1,
	}
	fresh := models.ContentItem{
		ID:            550,
		MediaType:     models.MediaTypeMovie,
		Title:         "New Title",
		Rating:        7.9,
		BackdropRef:   strptr("/backdrop.jpg"),
		FullyHydrated: true,
	}

	merged := models.MergeContent(base, fresh)

	if merged.Title != "New Title" {
		t.Fatalf("expected fresh title to win, got %q", merged.Title)
	}
	if merged.Rating != 7.9 {
		t.Fatalf("expected fresh rating, got %v", merged.Rating)
	}
	if merged.Overview != "old overview" {
		t.Fatalf("empty fresh overview must not clobber base, got %q", merged.Overview)
	}
	if merged.PosterRef == nil || *merged.PosterRef != "/old.jpg" {
		t.Fatalf("nil fresh poster must not clobber base poster")
	}
	if merged.BackdropRef == nil || *merged.BackdropRef != "/backdrop.jpg" {
		t.Fatalf("expected fresh backdrop to be taken")
	}
	if !merged.FullyHydrated {
		t.Fatalf("expected merged item to be marked hydrated")
	}
}

func TestMergeContentNeverDowngradesHydration(t *testing.T) {
	base := models.ContentItem{ID: 1, MediaType: models.MediaTypeTV, FullyHydrated: true}
	fresh := models.ContentItem{ID: 1, MediaType: models.MediaTypeTV, Title: "x"}
	if !models.MergeContent(base, fresh).FullyHydrated {
		t.Fatalf("hydrated flag must be sticky")
	}
}

func TestGenreRefUnmarshalShapes(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want models.GenreRef
	}{
		{"numeric id", `878`, models.GenreID(878)},
		{"plain name", `"Drama"`, models.GenreName("Drama")},
		{"structured", `{"id":16,"name":"Animation"}`, models.GenreStructured(16, "Animation")},
		{"embedded", `"{\"id\":35,\"name\":\"Comedy\"}"`, models.GenreRef{Kind: models.GenreKindEmbedded, Raw: `{"id":35,"name":"Comedy"}`}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got models.GenreRef
			if err := json.Unmarshal([]byte(tc.in), &got); err != nil {
				t.Fatalf("unmarshal %s: %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestGenreRefRoundTripInsideItem(t *testing.T) {
	raw := `{"id":603,"mediaType":"movie","title":"The Matrix","genres":[878,"Action",{"id":53,"name":"Thriller"}],"fullyHydrated":false}`

	var item models.ContentItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		t.Fatalf("unmarshal item: %v", err)
	}
	if len(item.Genres) != 3 {
		t.Fatalf("expected 3 genres, got %d", len(item.Genres))
	}
	if item.Genres[0].Kind != models.GenreKindID || item.Genres[0].ID != 878 {
		t.Fatalf("unexpected first genre: %+v", item.Genres[0])
	}
	if item.Genres[2].Name != "Thriller" {
		t.Fatalf("unexpected third genre: %+v", item.Genres[2])
	}

	if _, err := json.Marshal(item); err != nil {
		t.Fatalf("marshal item: %v", err)
	}
}

func TestNewFilterKeyNormalizes(t *testing.T) {
	fk := models.NewFilterKey("Movies", "")
	if fk.MediaType != models.MediaTypeMovie || fk.Genre != models.GenreAll {
		t.Fatalf("unexpected filter key: %+v", fk)
	}
	if fk.String() != "movie:all" {
		t.Fatalf("unexpected canonical form: %q", fk.String())
	}
}
