package mlengine

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/bizlens/analytics_backend/utils"
)

// trainFixture builds 180 days where every day sells 5x200 (1000 revenue)
// except Fridays with a post, which sell 5x300 (1500). Posts land on every
// Monday (no revenue effect) and on alternating Fridays, so no single
// feature separates the bump: the model has to learn the Friday-and-post
// interaction.
func trainFixture(now time.Time) fakeSource {
	start := utils.DateOnly(now).AddDate(0, 0, -lookbackDays)
	end := utils.DateOnly(now)

	var sales []SaleRecord
	var posts []PostRecord
	fridayCount := 0
	postId := 1
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		amount := 200.0
		switch utils.WeekdayIndex(d) {
		case 0:
			posts = append(posts, PostRecord{ID: postId, PostType: "reel", Date: d, Time: strptr("09:00")})
			postId++
		case 4:
			fridayCount++
			if fridayCount%2 == 0 {
				amount = 300
				posts = append(posts, PostRecord{ID: postId, PostType: "reel", Date: d, Time: strptr("19:00")})
				postId++
			}
		}
		for i := 0; i < 5; i++ {
			sales = append(sales, SaleRecord{ProductId: 1, Quantity: 1, Amount: amount, Date: d})
		}
	}

	return fakeSource{productIds: []int{1}, sales: sales, posts: posts}
}

func TestTrainModelInsufficientData(t *testing.T) {
	store := NewFileModelStore(t.TempDir())
	src := fakeSource{productIds: []int{1}} // products but no sales

	result, err := TrainModel(context.Background(), src, store, "biz", day(2026, time.June, 30))
	if err != nil {
		t.Fatalf("TrainModel: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure with no sales")
	}
	if result.Error != "Insufficient data. Need at least 30 days of sales." {
		t.Errorf("error = %q", result.Error)
	}

	if _, err := store.Load("biz"); err != utils.ErrorModelUnavailable {
		t.Errorf("expected no model persisted, got %v", err)
	}
}

func TestTrainModelAndPredict(t *testing.T) {
	now := day(2026, time.June, 30)
	src := trainFixture(now)
	store := NewFileModelStore(t.TempDir())

	result, err := TrainModel(context.Background(), src, store, "biz", now)
	if err != nil {
		t.Fatalf("TrainModel: %v", err)
	}
	if !result.Success {
		t.Fatalf("training failed: %s", result.Error)
	}
	if result.DataPoints != lookbackDays {
		t.Errorf("data points = %d, want %d", result.DataPoints, lookbackDays)
	}
	if result.R2 <= 0.5 {
		t.Errorf("R2 = %v, expected a strong fit on a clean pattern", result.R2)
	}
	if result.MAE >= 100 {
		t.Errorf("MAE = %v, expected < 100", result.MAE)
	}
	if len(result.FeatureImportance) == 0 || len(result.FeatureImportance) > 5 {
		t.Errorf("feature importance entries = %d, want 1..5", len(result.FeatureImportance))
	}

	blob, err := store.Load("biz")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if blob.BusinessId != "biz" || blob.SchemaVersion != modelSchemaVersion {
		t.Fatalf("blob header = %+v", blob)
	}
	if len(blob.Features) != len(featureColumns) {
		t.Errorf("blob features = %d, want %d", len(blob.Features), len(featureColumns))
	}

	// Matched pair on Friday: a post should be worth roughly the 500 bump.
	withPost := PredictScenario(blob, 4, "reel", true, 1000)
	withoutPost := PredictScenario(blob, 4, "reel", false, 1000)
	if withPost-withoutPost < 100 {
		t.Errorf("friday uplift = %v, expected > 100", withPost-withoutPost)
	}

	// Monday never had a post in training; the uplift there should be small
	// compared to Friday.
	mondayWith := PredictScenario(blob, 0, "reel", true, 1000)
	mondayWithout := PredictScenario(blob, 0, "reel", false, 1000)
	if (mondayWith - mondayWithout) >= (withPost - withoutPost) {
		t.Errorf("monday uplift %v should be below friday uplift %v",
			mondayWith-mondayWithout, withPost-withoutPost)
	}
}

func TestFileModelStoreMissing(t *testing.T) {
	store := NewFileModelStore(t.TempDir())
	if _, err := store.Load("nobody"); err != utils.ErrorModelUnavailable {
		t.Errorf("expected ErrorModelUnavailable, got %v", err)
	}
}

// A blob that exists but cannot be read is the same as no model: the caller
// falls back to the heuristic path instead of surfacing a storage error.
func TestFileModelStoreUnreadableBlob(t *testing.T) {
	store := NewFileModelStore(t.TempDir())
	// A directory at the blob path makes the read fail with something other
	// than not-exist.
	if err := os.MkdirAll(store.path("biz"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if _, err := store.Load("biz"); err != utils.ErrorModelUnavailable {
		t.Errorf("expected ErrorModelUnavailable on read failure, got %v", err)
	}
}

func TestFileModelStoreRejectsSchemaMismatch(t *testing.T) {
	store := NewFileModelStore(t.TempDir())
	blob := &ModelBlob{
		SchemaVersion: 99,
		BusinessId:    "biz",
		Model:         &GBTRegressor{Init: 1},
	}
	if err := store.Save(blob); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := store.Load("biz"); err != utils.ErrorModelUnavailable {
		t.Errorf("expected ErrorModelUnavailable on schema mismatch, got %v", err)
	}
}

func TestFileModelStoreRejectsMissingModel(t *testing.T) {
	store := NewFileModelStore(t.TempDir())
	blob := &ModelBlob{SchemaVersion: modelSchemaVersion, BusinessId: "biz"}
	if err := store.Save(blob); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := store.Load("biz"); err != utils.ErrorModelUnavailable {
		t.Errorf("expected ErrorModelUnavailable without trees, got %v", err)
	}
}

func TestFileModelStoreRoundTrip(t *testing.T) {
	store := NewFileModelStore(t.TempDir())
	original := &ModelBlob{
		SchemaVersion:   modelSchemaVersion,
		BusinessId:      "biz",
		TrainedAt:       day(2026, time.June, 30),
		Features:        []string{"had_post"},
		Metrics:         ModelMetrics{MAE: 12.5, R2: 0.8},
		BaselineRevenue: 1000,
		Model: &GBTRegressor{
			Init:         1000,
			LearningRate: 0.1,
			Trees: []*treeNode{
				{
					Feature:   0,
					Threshold: 0.5,
					Left:      &treeNode{Leaf: true, Value: 0},
					Right:     &treeNode{Leaf: true, Value: 500},
				},
			},
		},
	}
	if err := store.Save(original); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load("biz")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Metrics.R2 != 0.8 || loaded.BaselineRevenue != 1000 {
		t.Errorf("blob fields lost: %+v", loaded)
	}
	if got := loaded.Model.Predict([]float64{1}); got != 1050 {
		t.Errorf("loaded model prediction = %v, want 1050", got)
	}
	if got := loaded.Model.Predict([]float64{0}); got != 1000 {
		t.Errorf("loaded model prediction = %v, want 1000", got)
	}
}
