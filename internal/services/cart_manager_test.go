package services

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	domain "github.com/yemalin/api/internal/domain"
	"github.com/yemalin/api/internal/repositories/memory"
)

func newTestCartManager(t *testing.T) (CartManager, *memory.CartRepository) {
	t.Helper()
	repo := memory.NewCartRepository()
	manager, err := NewCartManager(CartManagerDeps{
		Repository: repo,
		Clock:      func() time.Time { return time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewCartManager: %v", err)
	}
	return manager, repo
}

func TestAddItemMergesQuantities(t *testing.T) {
	manager, _ := newTestCartManager(t)
	ctx := context.Background()

	manager.AddItem(ctx, "u1", domain.CartItem{ProductID: "p1", Size: "M", UnitPrice: 50, Quantity: 1})
	items := manager.AddItem(ctx, "u1", domain.CartItem{ProductID: "p1", Size: "M", UnitPrice: 50, Quantity: 2})

	if len(items) != 1 {
		t.Fatalf("expected one merged line, got %d", len(items))
	}
	if items[0].Quantity != 3 {
		t.Fatalf("quantity = %d, want 3", items[0].Quantity)
	}
	if got := manager.Total(ctx, "u1"); got != 150 {
		t.Fatalf("total = %f, want 150", got)
	}
}

func TestAddItemDifferentSizeIsSeparateLine(t *testing.T) {
	manager, _ := newTestCartManager(t)
	ctx := context.Background()

	manager.AddItem(ctx, "u1", domain.CartItem{ProductID: "p1", Size: "M", UnitPrice: 50, Quantity: 1})
	items := manager.AddItem(ctx, "u1", domain.CartItem{ProductID: "p1", Size: "L", UnitPrice: 50, Quantity: 1})

	if len(items) != 2 {
		t.Fatalf("expected two lines, got %d", len(items))
	}
}

func TestRemoveAbsentItemIsNoOp(t *testing.T) {
	manager, _ := newTestCartManager(t)
	ctx := context.Background()

	manager.AddItem(ctx, "u1", domain.CartItem{ProductID: "p1", Size: "M", UnitPrice: 50, Quantity: 1})
	before := manager.Items(ctx, "u1")

	after := manager.RemoveItem(ctx, "u1", "p9", "M")
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("cart changed on absent removal: %v vs %v", before, after)
	}
}

func TestUpdateQuantityZeroCollapsesToRemoval(t *testing.T) {
	manager, _ := newTestCartManager(t)
	ctx := context.Background()

	for _, quantity := range []int{0, -3} {
		manager.Clear(ctx, "u1")
		manager.AddItem(ctx, "u1", domain.CartItem{ProductID: "p1", Size: "M", UnitPrice: 50, Quantity: 2})

		items := manager.UpdateQuantity(ctx, "u1", "p1", "M", quantity)
		if len(items) != 0 {
			t.Fatalf("quantity %d should remove the line, got %v", quantity, items)
		}
		if manager.Contains(ctx, "u1", "p1", "M") {
			t.Fatalf("item still present after quantity %d", quantity)
		}
	}
}

func TestUpdateQuantitySetsValue(t *testing.T) {
	manager, _ := newTestCartManager(t)
	ctx := context.Background()

	manager.AddItem(ctx, "u1", domain.CartItem{ProductID: "p1", Size: "M", UnitPrice: 50, Quantity: 2})
	items := manager.UpdateQuantity(ctx, "u1", "p1", "M", 5)

	if items[0].Quantity != 5 {
		t.Fatalf("quantity = %d, want 5", items[0].Quantity)
	}
	if got := manager.ItemQuantity(ctx, "u1", "p1", "M"); got != 5 {
		t.Fatalf("ItemQuantity = %d, want 5", got)
	}

	// Missing line is a no-op, not an error.
	items = manager.UpdateQuantity(ctx, "u1", "p2", "M", 4)
	if len(items) != 1 {
		t.Fatalf("unexpected lines after missing-key update: %v", items)
	}
}

func TestTotalMatchesSumInOrder(t *testing.T) {
	manager, _ := newTestCartManager(t)
	ctx := context.Background()

	manager.AddItem(ctx, "u1", domain.CartItem{ProductID: "p1", Size: "M", UnitPrice: 19.99, Quantity: 3})
	manager.AddItem(ctx, "u1", domain.CartItem{ProductID: "p2", Size: "S", UnitPrice: 240.50, Quantity: 1})
	manager.AddItem(ctx, "u1", domain.CartItem{ProductID: "p3", Size: "L", UnitPrice: 0.10, Quantity: 7})

	var want float64
	for _, item := range manager.Items(ctx, "u1") {
		want += item.UnitPrice * float64(item.Quantity)
	}
	if got := manager.Total(ctx, "u1"); got != want {
		t.Fatalf("total = %v, want %v", got, want)
	}
}

func TestCartPersistsAndReloads(t *testing.T) {
	repo := memory.NewCartRepository()
	ctx := context.Background()

	first, err := NewCartManager(CartManagerDeps{Repository: repo})
	if err != nil {
		t.Fatalf("NewCartManager: %v", err)
	}
	first.AddItem(ctx, "u1", domain.CartItem{ProductID: "p1", Size: "M", UnitPrice: 50, Quantity: 2})

	second, err := NewCartManager(CartManagerDeps{Repository: repo})
	if err != nil {
		t.Fatalf("NewCartManager: %v", err)
	}
	second.Load(ctx, "u1")
	if !second.Loaded("u1") {
		t.Fatal("expected owner to be loaded")
	}
	if got := second.ItemQuantity(ctx, "u1", "p1", "M"); got != 2 {
		t.Fatalf("reloaded quantity = %d, want 2", got)
	}
}

type failingCartRepo struct{}

func (failingCartRepo) Load(context.Context, string) ([]domain.CartItem, error) {
	return nil, errors.New("store down")
}
func (failingCartRepo) Save(context.Context, string, []domain.CartItem) error {
	return errors.New("store down")
}
func (failingCartRepo) Clear(context.Context, string) error {
	return errors.New("store down")
}

func TestStorageFailuresAreSwallowed(t *testing.T) {
	var logged []string
	manager, err := NewCartManager(CartManagerDeps{
		Repository: failingCartRepo{},
		Logger: func(_ context.Context, event string, _ map[string]any) {
			logged = append(logged, event)
		},
	})
	if err != nil {
		t.Fatalf("NewCartManager: %v", err)
	}

	ctx := context.Background()
	items := manager.AddItem(ctx, "u1", domain.CartItem{ProductID: "p1", Size: "M", UnitPrice: 50, Quantity: 1})
	if len(items) != 1 {
		t.Fatalf("in-memory change should proceed, got %v", items)
	}
	if len(logged) == 0 {
		t.Fatal("expected load/persist failures to be logged")
	}
}
