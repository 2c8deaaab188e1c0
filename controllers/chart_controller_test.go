package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/beatchart/beatchart/models"
)

func newChartTestRouter(db *gorm.DB) *gin.Engine {
	r := gin.New()
	r.GET("/api/v1/charts", NewChartController(db).ListCharts)
	return r
}

type chartPage struct {
	Items      []models.Track `json:"items"`
	Pagination struct {
		Page       int   `json:"page"`
		PageSize   int   `json:"page_size"`
		Total      int64 `json:"total"`
		TotalPages int   `json:"total_pages"`
	} `json:"pagination"`
}

func getChartPage(t *testing.T, r *gin.Engine, query string) chartPage {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/charts"+query, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var page chartPage
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	return page
}

func TestChartsPaginationComplete(t *testing.T) {
	db := newTestDB(t)
	r := newChartTestRouter(db)

	const total = 23
	want := map[uint]bool{}
	for i := 0; i < total; i++ {
		track := createTrack(t, db, func(tr *models.Track) {
			tr.Title = fmt.Sprintf("Track %02d", i)
			tr.VoteCount = int64(i + 1)
			tr.AverageRating = float64(i%10) + 0.5
		})
		want[track.ID] = true
	}

	seen := map[uint]bool{}
	for p := 1; p <= 3; p++ {
		page := getChartPage(t, r, fmt.Sprintf("?page=%d&page_size=10", p))
		if page.Pagination.Total != total {
			t.Fatalf("page %d total = %d, want %d", p, page.Pagination.Total, total)
		}
		if page.Pagination.TotalPages != 3 {
			t.Fatalf("total_pages = %d, want 3", page.Pagination.TotalPages)
		}
		for _, item := range page.Items {
			if seen[item.ID] {
				t.Fatalf("track %d appears on multiple pages", item.ID)
			}
			seen[item.ID] = true
		}
	}
	if len(seen) != total {
		t.Fatalf("pages cover %d tracks, want %d", len(seen), total)
	}
	for id := range want {
		if !seen[id] {
			t.Fatalf("track %d missing from paginated feed", id)
		}
	}

	// A page past the end is an empty page, not an error.
	past := getChartPage(t, r, "?page=4&page_size=10")
	if len(past.Items) != 0 {
		t.Fatalf("page past end has %d items", len(past.Items))
	}
}

func TestChartsOrdering(t *testing.T) {
	db := newTestDB(t)
	r := newChartTestRouter(db)

	createTrack(t, db, func(tr *models.Track) { tr.Title = "mid"; tr.AverageRating = 6.5 })
	createTrack(t, db, func(tr *models.Track) { tr.Title = "top"; tr.AverageRating = 9.1 })
	createTrack(t, db, func(tr *models.Track) { tr.Title = "low"; tr.AverageRating = 2.0 })

	page := getChartPage(t, r, "")
	if len(page.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(page.Items))
	}
	for i := 1; i < len(page.Items); i++ {
		if page.Items[i].AverageRating > page.Items[i-1].AverageRating {
			t.Fatalf("feed not sorted by rating: %v then %v",
				page.Items[i-1].AverageRating, page.Items[i].AverageRating)
		}
	}
	if page.Items[0].Title != "top" {
		t.Fatalf("first item %q, want the best rated", page.Items[0].Title)
	}
}

func TestChartsGenreFilter(t *testing.T) {
	db := newTestDB(t)
	r := newChartTestRouter(db)

	for i := 0; i < 3; i++ {
		createTrack(t, db, func(tr *models.Track) { tr.Genre = "house" })
	}
	for i := 0; i < 2; i++ {
		createTrack(t, db, func(tr *models.Track) { tr.Genre = "ambient" })
	}

	page := getChartPage(t, r, "?genre=house")
	if page.Pagination.Total != 3 {
		t.Fatalf("house total = %d, want 3", page.Pagination.Total)
	}
	for _, item := range page.Items {
		if item.Genre != "house" {
			t.Fatalf("genre filter leaked %q", item.Genre)
		}
	}

	if got := getChartPage(t, r, "?genre=all").Pagination.Total; got != 5 {
		t.Fatalf("genre=all total = %d, want 5", got)
	}
	if got := getChartPage(t, r, "").Pagination.Total; got != 5 {
		t.Fatalf("no filter total = %d, want 5", got)
	}
	if got := getChartPage(t, r, "?genre=jazz").Pagination.Total; got != 0 {
		t.Fatalf("unknown genre total = %d, want 0", got)
	}
}

func TestChartsHideUnapproved(t *testing.T) {
	db := newTestDB(t)
	r := newChartTestRouter(db)

	createTrack(t, db, nil)
	createTrack(t, db, func(tr *models.Track) { tr.Approved = false })

	page := getChartPage(t, r, "")
	if page.Pagination.Total != 1 || len(page.Items) != 1 {
		t.Fatalf("feed shows %d/%d tracks, want 1", len(page.Items), page.Pagination.Total)
	}
}

func TestChartsPageSizeClamped(t *testing.T) {
	db := newTestDB(t)
	r := newChartTestRouter(db)

	page := getChartPage(t, r, "?page_size=5000")
	if page.Pagination.PageSize != 50 {
		t.Fatalf("page_size = %d, want clamped to 50", page.Pagination.PageSize)
	}

	// Garbage paging input falls back to defaults.
	page = getChartPage(t, r, "?page=banana&page_size=-3")
	if page.Pagination.Page != 1 || page.Pagination.PageSize != 20 {
		t.Fatalf("pagination = %+v, want defaults", page.Pagination)
	}
}
