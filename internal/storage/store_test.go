// internal/storage/store_test.go
package storage

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	apperrors "github.com/valpere/recipevault/internal/errors"
	"github.com/valpere/recipevault/pkg/types"
)

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newClock() *clock {
	return &clock{t: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)}
}

// storeFactories builds each backend that can run without external services.
func storeFactories(t *testing.T) map[string]func(*clock) Store {
	return map[string]func(*clock) Store{
		"memory": func(c *clock) Store {
			s := NewMemoryStore()
			s.now = c.now
			return s
		},
		"sqlite": func(c *clock) Store {
			s, err := NewSQLiteStore(context.Background(), Config{
				Driver: DriverSQLite,
				DSN:    filepath.Join(t.TempDir(), "data", "recipes.db"),
			})
			if err != nil {
				t.Fatalf("NewSQLiteStore failed: %v", err)
			}
			s.now = c.now
			return s
		},
	}
}

func sampleRecipe(url, title string) types.Recipe {
	img := "https://example.com/" + title + ".jpg"
	return types.Recipe{
		Title:        title,
		Ingredients:  []string{"200g flour", "2 eggs"},
		Instructions: []string{"Mix well", "Rest for 30 minutes"},
		Image:        &img,
		URL:          url,
		ScrapedAt:    time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
		Provenance:   &types.Provenance{Title: 0},
	}
}

func TestStore_UpsertInsertsAndReturnsStoredRecord(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(newClock())
			defer s.Close()
			ctx := context.Background()

			in := sampleRecipe("https://example.com/pasta", "Pasta")
			got, err := s.Upsert(ctx, in)
			if err != nil {
				t.Fatalf("Upsert failed: %v", err)
			}

			if got.ID == 0 {
				t.Error("expected an assigned id")
			}
			if got.Title != in.Title || got.URL != in.URL || got.ImageURL() != in.ImageURL() {
				t.Errorf("stored record differs: %+v", got)
			}
			if !reflect.DeepEqual(got.Ingredients, in.Ingredients) || !reflect.DeepEqual(got.Instructions, in.Instructions) {
				t.Errorf("lists differ: %q / %q", got.Ingredients, got.Instructions)
			}
			if !got.ScrapedAt.Equal(in.ScrapedAt) {
				t.Errorf("scrapedAt = %v, want %v", got.ScrapedAt, in.ScrapedAt)
			}
			if got.CreatedAt.IsZero() {
				t.Error("createdAt not set")
			}
			if got.Provenance != nil {
				t.Error("provenance must not be persisted")
			}
		})
	}
}

func TestStore_UpsertExistingURLRefreshesOnlyScrapedAt(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(newClock())
			defer s.Close()
			ctx := context.Background()

			first, err := s.Upsert(ctx, sampleRecipe("https://example.com/soup", "Soup"))
			if err != nil {
				t.Fatalf("first Upsert failed: %v", err)
			}

			again := sampleRecipe("https://example.com/soup", "Renamed Soup")
			again.Ingredients = []string{"water"}
			again.ScrapedAt = first.ScrapedAt.Add(time.Hour)
			second, err := s.Upsert(ctx, again)
			if err != nil {
				t.Fatalf("second Upsert failed: %v", err)
			}

			if second.ID != first.ID {
				t.Errorf("id changed from %d to %d", first.ID, second.ID)
			}
			if second.Title != "Soup" || !reflect.DeepEqual(second.Ingredients, first.Ingredients) {
				t.Errorf("existing content was overwritten: %+v", second)
			}
			if !second.ScrapedAt.Equal(again.ScrapedAt) {
				t.Errorf("scrapedAt = %v, want %v", second.ScrapedAt, again.ScrapedAt)
			}
			if !second.CreatedAt.Equal(first.CreatedAt) {
				t.Errorf("createdAt changed from %v to %v", first.CreatedAt, second.CreatedAt)
			}

			all, err := s.ListAll(ctx)
			if err != nil {
				t.Fatalf("ListAll failed: %v", err)
			}
			if len(all) != 1 {
				t.Errorf("expected 1 record, got %d", len(all))
			}
		})
	}
}

func TestStore_ListAllNewestFirst(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(newClock())
			defer s.Close()
			ctx := context.Background()

			empty, err := s.ListAll(ctx)
			if err != nil {
				t.Fatalf("ListAll failed: %v", err)
			}
			if empty == nil || len(empty) != 0 {
				t.Errorf("expected empty non-nil list, got %#v", empty)
			}

			for _, title := range []string{"first", "second", "third"} {
				if _, err := s.Upsert(ctx, sampleRecipe("https://example.com/"+title, title)); err != nil {
					t.Fatalf("Upsert failed: %v", err)
				}
			}

			all, err := s.ListAll(ctx)
			if err != nil {
				t.Fatalf("ListAll failed: %v", err)
			}
			var titles []string
			for _, r := range all {
				titles = append(titles, r.Title)
			}
			if want := []string{"third", "second", "first"}; !reflect.DeepEqual(titles, want) {
				t.Errorf("order = %v, want %v", titles, want)
			}
		})
	}
}

func TestStore_DeleteByURL(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(newClock())
			defer s.Close()
			ctx := context.Background()

			in := sampleRecipe("https://example.com/cake", "Cake")
			in.Image = nil
			if _, err := s.Upsert(ctx, in); err != nil {
				t.Fatalf("Upsert failed: %v", err)
			}

			deleted, err := s.DeleteByURL(ctx, in.URL)
			if err != nil {
				t.Fatalf("DeleteByURL failed: %v", err)
			}
			if deleted == nil || deleted.Title != "Cake" {
				t.Fatalf("unexpected deleted record: %+v", deleted)
			}
			if deleted.Image != nil {
				t.Errorf("image = %q, want nil", *deleted.Image)
			}

			again, err := s.DeleteByURL(ctx, in.URL)
			if err != nil || again != nil {
				t.Errorf("second delete = %+v, %v; want nil, nil", again, err)
			}

			all, _ := s.ListAll(ctx)
			if len(all) != 0 {
				t.Errorf("expected empty store, got %d records", len(all))
			}
		})
	}
}

func TestStore_Ping(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(newClock())
			defer s.Close()
			if err := s.Ping(context.Background()); err != nil {
				t.Errorf("Ping failed: %v", err)
			}
		})
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	got, err := s.Upsert(ctx, sampleRecipe("https://example.com/a", "A"))
	if err != nil {
		t.Fatal(err)
	}
	got.Ingredients[0] = "mutated"

	all, _ := s.ListAll(ctx)
	if all[0].Ingredients[0] != "200g flour" {
		t.Error("caller mutation leaked into the store")
	}
}

func TestSQLStore_ClosedDatabaseReportsPersistenceError(t *testing.T) {
	s, err := NewSQLiteStore(context.Background(), Config{DSN: filepath.Join(t.TempDir(), "r.db")})
	if err != nil {
		t.Fatal(err)
	}
	s.db.Close()

	_, err = s.Upsert(context.Background(), sampleRecipe("https://example.com/x", "X"))
	if !errors.Is(err, apperrors.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if msg := apperrors.UserMessage(err, ""); msg != apperrors.MsgSaveFailed {
		t.Errorf("user message = %q", msg)
	}

	_, err = s.ListAll(context.Background())
	if msg := apperrors.UserMessage(err, ""); msg != apperrors.MsgListFailed {
		t.Errorf("list user message = %q", msg)
	}
}

type opRecorder struct {
	ops []string
}

func (r *opRecorder) ObserveStoreOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.ops = append(r.ops, op+":"+result)
}

func TestInstrument(t *testing.T) {
	rec := &opRecorder{}
	s := Instrument(NewMemoryStore(), rec)
	ctx := context.Background()

	s.Upsert(ctx, sampleRecipe("https://example.com/a", "A"))
	s.ListAll(ctx)
	s.DeleteByURL(ctx, "https://example.com/a")

	want := []string{"upsert:ok", "list:ok", "delete:ok"}
	if !reflect.DeepEqual(rec.ops, want) {
		t.Errorf("ops = %v, want %v", rec.ops, want)
	}

	if Instrument(NewMemoryStore(), nil) == nil {
		t.Error("Instrument with nil observer should return the store")
	}
}
