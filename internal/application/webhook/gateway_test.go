package webhook

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YKLee98/naver-sub003/internal/application/reconciliation"
	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/domain/inventory"
	"github.com/YKLee98/naver-sub003/internal/domain/shared"
	"github.com/YKLee98/naver-sub003/internal/domain/webhook"
	"github.com/YKLee98/naver-sub003/internal/infrastructure/cache"
	"github.com/YKLee98/naver-sub003/internal/testutil"
)

const testSecret = "shpss_test_secret"

type gatewayFixture struct {
	gateway  *Gateway
	receipts *cache.InMemoryReceiptStore
	mappings *testutil.MappingStore
	ledger   *testutil.LedgerStore
	naver    *testutil.FakePlatform
	shopify  *testutil.FakePlatform
}

func newGatewayFixture(t *testing.T, mappings ...*integration.Mapping) *gatewayFixture {
	t.Helper()
	f := &gatewayFixture{
		receipts: cache.NewInMemoryReceiptStore(),
		mappings: testutil.NewMappingStore(mappings...),
		ledger:   testutil.NewLedgerStore(),
		naver:    testutil.NewFakePlatform(integration.PlatformNaver),
		shopify:  testutil.NewFakePlatform(integration.PlatformShopify),
	}
	t.Cleanup(func() { _ = f.receipts.Close() })

	clock := testutil.NewManualClock(testutil.Epoch)
	engine := reconciliation.NewEngine(reconciliation.Deps{
		Mappings:  f.mappings,
		Ledger:    f.ledger,
		Platforms: integration.NewPlatformRegistry(f.naver, f.shopify),
		Clock:     clock,
	}, reconciliation.DefaultConfig())

	f.gateway = NewGateway(f.receipts, f.mappings, engine, Config{Secret: testSecret}, clock, nil)
	return f
}

func paidPayload(orderID string, lines ...string) []byte {
	return []byte(fmt.Sprintf(`{"id":%s,"name":"#%s","line_items":[%s]}`, orderID, orderID, joinLines(lines)))
}

func line(sku string, qty int) string {
	return fmt.Sprintf(`{"id":1,"variant_id":"var-%s","sku":%q,"quantity":%d}`, sku, sku, qty)
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += ","
		}
		out += l
	}
	return out
}

func ledgerFor(f *gatewayFixture, sku string) []inventory.InventoryTransaction {
	var out []inventory.InventoryTransaction
	for _, tx := range f.ledger.Entries() {
		if tx.SKU == sku {
			out = append(out, tx)
		}
	}
	return out
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"id":1}`)
	sig := Sign(body, testSecret)

	assert.True(t, VerifySignature(body, sig, testSecret))
	assert.False(t, VerifySignature(body, sig, "other"))
	assert.False(t, VerifySignature([]byte(`{"id":2}`), sig, testSecret))
	assert.False(t, VerifySignature(body, "", testSecret))
	assert.True(t, VerifySignature(body, "", ""), "empty secret skips verification")
}

func TestGateway_HandleDelivery_RejectsBadSignature(t *testing.T) {
	f := newGatewayFixture(t, testutil.NewMapping("SKU-1", testutil.WithQuantities(10, 10)))
	payload := paidPayload("1001", line("SKU-1", 2))

	out, err := f.gateway.HandleDelivery(context.Background(), Delivery{
		EventID:   "evt-1",
		EventType: webhook.EventOrderPaid,
		Payload:   payload,
		Signature: "bogus",
	})

	require.ErrorIs(t, err, shared.ErrSignatureVerification)
	assert.Equal(t, webhook.OutcomeRejected, out.Status)
	assert.Zero(t, f.ledger.Len())

	_, lookupErr := f.receipts.Lookup(context.Background(), "evt-1")
	assert.ErrorIs(t, lookupErr, webhook.ErrReceiptNotFound, "rejected signatures leave no receipt")
}

func TestGateway_OrderPaid(t *testing.T) {
	ctx := context.Background()

	t.Run("decrements naver and pushes the new level", func(t *testing.T) {
		f := newGatewayFixture(t, testutil.NewMapping("SKU-1", testutil.WithQuantities(10, 10)))
		payload := paidPayload("1001", line("SKU-1", 3))

		out, err := f.gateway.HandleDelivery(ctx, Delivery{
			EventID: "evt-1", EventType: webhook.EventOrderPaid, Payload: payload, Signature: Sign(payload, testSecret),
		})
		require.NoError(t, err)

		assert.Equal(t, webhook.OutcomeProcessed, out.Status)
		assert.Equal(t, "1001", out.OrderID)
		require.Len(t, out.Items, 1)
		assert.Equal(t, webhook.ItemApplied, out.Items[0].Status)

		assert.Equal(t, 7, f.mappings.Get("SKU-1").Quantity(integration.PlatformNaver))
		assert.Equal(t, 7, f.naver.Quantity("SKU-1"))

		entries := ledgerFor(f, "SKU-1")
		require.Len(t, entries, 1)
		assert.Equal(t, inventory.TransactionTypeSale, entries[0].Type)
		assert.Equal(t, -3, entries[0].Delta)
		assert.Equal(t, "1001", entries[0].OrderID)
	})

	t.Run("redelivery of the same event id changes nothing", func(t *testing.T) {
		f := newGatewayFixture(t, testutil.NewMapping("SKU-1", testutil.WithQuantities(10, 10)))
		payload := paidPayload("1001", line("SKU-1", 3))

		first, err := f.gateway.Ingest(ctx, "evt-1", webhook.EventOrderPaid, payload)
		require.NoError(t, err)
		before := f.ledger.Len()

		second, err := f.gateway.Ingest(ctx, "evt-1", webhook.EventOrderPaid, payload)
		require.NoError(t, err)

		assert.True(t, second.Duplicate)
		assert.False(t, first.Duplicate)
		assert.Equal(t, first.Status, second.Status)
		assert.Equal(t, before, f.ledger.Len())
		assert.Equal(t, 7, f.mappings.Get("SKU-1").Quantity(integration.PlatformNaver))
	})

	t.Run("same order under a new event id is not applied twice", func(t *testing.T) {
		f := newGatewayFixture(t, testutil.NewMapping("SKU-1", testutil.WithQuantities(10, 10)))
		payload := paidPayload("1001", line("SKU-1", 3))

		_, err := f.gateway.Ingest(ctx, "evt-1", webhook.EventOrderPaid, payload)
		require.NoError(t, err)
		out, err := f.gateway.Ingest(ctx, "evt-2", webhook.EventOrderPaid, payload)
		require.NoError(t, err)

		assert.False(t, out.Duplicate)
		assert.Equal(t, webhook.OutcomeProcessed, out.Status)
		assert.Len(t, ledgerFor(f, "SKU-1"), 1)
		assert.Equal(t, 7, f.mappings.Get("SKU-1").Quantity(integration.PlatformNaver))
	})

	t.Run("unresolved lines fail without blocking the rest", func(t *testing.T) {
		f := newGatewayFixture(t, testutil.NewMapping("SKU-1", testutil.WithQuantities(10, 10)))
		payload := paidPayload("1002", line("SKU-1", 1), line("GHOST", 4))

		out, err := f.gateway.Ingest(ctx, "evt-3", webhook.EventOrderPaid, payload)
		require.NoError(t, err)

		assert.Equal(t, webhook.OutcomePartial, out.Status)
		require.Len(t, out.Items, 2)
		assert.Equal(t, webhook.ItemApplied, out.Items[0].Status)
		assert.Equal(t, webhook.ItemFailed, out.Items[1].Status)
		assert.Equal(t, "GHOST", out.Items[1].Reference)
		assert.Equal(t, 9, f.mappings.Get("SKU-1").Quantity(integration.PlatformNaver))
	})

	t.Run("resolves by variant id when the sku is blank", func(t *testing.T) {
		f := newGatewayFixture(t, testutil.NewMapping("SKU-1", testutil.WithQuantities(10, 10)))
		payload := paidPayload("1003", `{"id":5,"variant_id":"var-SKU-1","sku":"","quantity":2}`)

		out, err := f.gateway.Ingest(ctx, "evt-4", webhook.EventOrderPaid, payload)
		require.NoError(t, err)

		assert.Equal(t, webhook.OutcomeProcessed, out.Status)
		assert.Equal(t, "SKU-1", out.Items[0].SKU)
		assert.Equal(t, 8, f.mappings.Get("SKU-1").Quantity(integration.PlatformNaver))
	})

	t.Run("push failure marks the line failed", func(t *testing.T) {
		f := newGatewayFixture(t, testutil.NewMapping("SKU-1", testutil.WithQuantities(10, 10)))
		f.naver.FailWrites("SKU-1", shared.NewTransientPlatformError("naver", errors.New("503")))

		out, err := f.gateway.Ingest(ctx, "evt-5", webhook.EventOrderPaid, paidPayload("1004", line("SKU-1", 2)))
		require.NoError(t, err)

		assert.Equal(t, webhook.OutcomeFailed, out.Status)
		assert.Equal(t, 10, f.mappings.Get("SKU-1").Quantity(integration.PlatformNaver))
		entries := ledgerFor(f, "SKU-1")
		require.Len(t, entries, 1)
		assert.Equal(t, inventory.TransactionTypeUpdateFailed, entries[0].Type)
	})

	t.Run("malformed payload is rejected and remembered", func(t *testing.T) {
		f := newGatewayFixture(t)

		out, err := f.gateway.Ingest(ctx, "evt-6", webhook.EventOrderPaid, []byte(`{"id":1,"line_items":[]}`))
		require.Error(t, err)
		assert.Equal(t, shared.KindValidation, shared.KindOf(err))
		assert.Equal(t, webhook.OutcomeRejected, out.Status)

		again, err := f.gateway.Ingest(ctx, "evt-6", webhook.EventOrderPaid, []byte(`{"id":1,"line_items":[]}`))
		require.NoError(t, err)
		assert.True(t, again.Duplicate)
		assert.Equal(t, webhook.OutcomeRejected, again.Status)
	})
}

func TestGateway_OrderCancelled(t *testing.T) {
	ctx := context.Background()

	t.Run("compensates applied lines and skips failed ones", func(t *testing.T) {
		f := newGatewayFixture(t,
			testutil.NewMapping("SKU-1", testutil.WithQuantities(10, 10)),
			testutil.NewMapping("SKU-2", testutil.WithQuantities(5, 5)),
		)
		f.naver.FailWrites("SKU-2", errors.New("naver down"))

		paid, err := f.gateway.Ingest(ctx, "evt-1", webhook.EventOrderPaid,
			paidPayload("2001", line("SKU-1", 4), line("SKU-2", 1), line("GHOST", 1)))
		require.NoError(t, err)
		require.Equal(t, webhook.OutcomePartial, paid.Status)
		assert.Equal(t, 6, f.mappings.Get("SKU-1").Quantity(integration.PlatformNaver))

		out, err := f.gateway.Ingest(ctx, "evt-2", webhook.EventOrderCancelled, []byte(`{"id":2001,"cancel_reason":"customer"}`))
		require.NoError(t, err)

		assert.Equal(t, webhook.OutcomeProcessed, out.Status)
		require.Len(t, out.Items, 1)
		assert.Equal(t, webhook.ItemCompensated, out.Items[0].Status)
		assert.Equal(t, 4, out.Items[0].Quantity)

		assert.Equal(t, 10, f.mappings.Get("SKU-1").Quantity(integration.PlatformNaver))
		assert.Equal(t, 5, f.mappings.Get("SKU-2").Quantity(integration.PlatformNaver))

		entries := ledgerFor(f, "SKU-1")
		require.Len(t, entries, 2)
		assert.Equal(t, inventory.TransactionTypeAdjustment, entries[1].Type)
		assert.Equal(t, 4, entries[1].Delta)
		assert.Equal(t, "2001", entries[1].OrderID)
	})

	t.Run("second cancellation is ignored", func(t *testing.T) {
		f := newGatewayFixture(t, testutil.NewMapping("SKU-1", testutil.WithQuantities(10, 10)))
		_, err := f.gateway.Ingest(ctx, "evt-1", webhook.EventOrderPaid, paidPayload("2002", line("SKU-1", 2)))
		require.NoError(t, err)
		_, err = f.gateway.Ingest(ctx, "evt-2", webhook.EventOrderCancelled, []byte(`{"id":2002}`))
		require.NoError(t, err)

		out, err := f.gateway.Ingest(ctx, "evt-3", webhook.EventOrderCancelled, []byte(`{"id":2002}`))
		require.NoError(t, err)

		assert.Equal(t, webhook.OutcomeIgnored, out.Status)
		assert.Equal(t, 10, f.mappings.Get("SKU-1").Quantity(integration.PlatformNaver))
	})

	t.Run("failed compensation is retried by the next cancellation", func(t *testing.T) {
		f := newGatewayFixture(t, testutil.NewMapping("SKU-1", testutil.WithQuantities(10, 10)))
		_, err := f.gateway.Ingest(ctx, "evt-1", webhook.EventOrderPaid, paidPayload("2003", line("SKU-1", 4)))
		require.NoError(t, err)
		require.Equal(t, 6, f.mappings.Get("SKU-1").Quantity(integration.PlatformNaver))

		f.naver.FailWrites("SKU-1", shared.NewTransientPlatformError("naver", errors.New("503")))
		first, err := f.gateway.Ingest(ctx, "evt-2", webhook.EventOrderCancelled, []byte(`{"id":2003}`))
		require.NoError(t, err)
		assert.Equal(t, webhook.OutcomeFailed, first.Status)
		assert.Equal(t, 6, f.mappings.Get("SKU-1").Quantity(integration.PlatformNaver))

		f.naver.FailWrites("SKU-1", nil)
		second, err := f.gateway.Ingest(ctx, "evt-3", webhook.EventOrderCancelled, []byte(`{"id":2003}`))
		require.NoError(t, err)
		assert.Equal(t, webhook.OutcomeProcessed, second.Status)
		require.Len(t, second.Items, 1)
		assert.Equal(t, webhook.ItemCompensated, second.Items[0].Status)
		assert.Equal(t, 10, f.mappings.Get("SKU-1").Quantity(integration.PlatformNaver))

		third, err := f.gateway.Ingest(ctx, "evt-4", webhook.EventOrderCancelled, []byte(`{"id":2003}`))
		require.NoError(t, err)
		assert.Equal(t, webhook.OutcomeIgnored, third.Status)
		assert.Equal(t, 10, f.mappings.Get("SKU-1").Quantity(integration.PlatformNaver))
	})

	t.Run("paid delivery after cancellation does not decrement", func(t *testing.T) {
		f := newGatewayFixture(t, testutil.NewMapping("SKU-1", testutil.WithQuantities(10, 10)))
		payload := paidPayload("2004", line("SKU-1", 4))
		_, err := f.gateway.Ingest(ctx, "evt-1", webhook.EventOrderPaid, payload)
		require.NoError(t, err)
		_, err = f.gateway.Ingest(ctx, "evt-2", webhook.EventOrderCancelled, []byte(`{"id":2004}`))
		require.NoError(t, err)
		require.Equal(t, 10, f.mappings.Get("SKU-1").Quantity(integration.PlatformNaver))

		out, err := f.gateway.Ingest(ctx, "evt-3", webhook.EventOrderPaid, payload)
		require.NoError(t, err)

		assert.Equal(t, webhook.OutcomeIgnored, out.Status)
		assert.Equal(t, 10, f.mappings.Get("SKU-1").Quantity(integration.PlatformNaver))
		assert.Len(t, ledgerFor(f, "SKU-1"), 2)
	})

	t.Run("cancellation before payment blocks the later paid delivery", func(t *testing.T) {
		f := newGatewayFixture(t, testutil.NewMapping("SKU-1", testutil.WithQuantities(10, 10)))

		out, err := f.gateway.Ingest(ctx, "evt-1", webhook.EventOrderCancelled, []byte(`{"id":2005}`))
		require.NoError(t, err)
		assert.Equal(t, webhook.OutcomeIgnored, out.Status)

		paid, err := f.gateway.Ingest(ctx, "evt-2", webhook.EventOrderPaid, paidPayload("2005", line("SKU-1", 4)))
		require.NoError(t, err)
		assert.Equal(t, webhook.OutcomeIgnored, paid.Status)
		assert.Zero(t, f.ledger.Len())
	})

	t.Run("unknown order is a no-op", func(t *testing.T) {
		f := newGatewayFixture(t, testutil.NewMapping("SKU-1", testutil.WithQuantities(10, 10)))

		out, err := f.gateway.Ingest(ctx, "evt-9", webhook.EventOrderCancelled, []byte(`{"id":"9999"}`))
		require.NoError(t, err)

		assert.Equal(t, webhook.OutcomeIgnored, out.Status)
		assert.Zero(t, f.ledger.Len())
	})
}

func TestGateway_InventoryLevelUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("overrides the cached shopify level", func(t *testing.T) {
		f := newGatewayFixture(t, testutil.NewMapping("SKU-1", testutil.WithQuantities(10, 10)))

		out, err := f.gateway.Ingest(ctx, "evt-1", webhook.EventInventoryLevelUpdate,
			[]byte(`{"inventory_item_id":"inv-SKU-1","location_id":"loc-1","available":0}`))
		require.NoError(t, err)

		assert.Equal(t, webhook.OutcomeProcessed, out.Status)
		assert.Equal(t, 0, f.mappings.Get("SKU-1").Quantity(integration.PlatformShopify))
		assert.Equal(t, 10, f.mappings.Get("SKU-1").Quantity(integration.PlatformNaver))
		assert.Zero(t, f.shopify.Writes(), "reported levels are not pushed back")

		entries := ledgerFor(f, "SKU-1")
		require.Len(t, entries, 1)
		assert.Equal(t, inventory.TransactionTypeSync, entries[0].Type)
		assert.Equal(t, -10, entries[0].Delta)
	})

	t.Run("unknown inventory item fails the outcome", func(t *testing.T) {
		f := newGatewayFixture(t, testutil.NewMapping("SKU-1", testutil.WithQuantities(10, 10)))

		out, err := f.gateway.Ingest(ctx, "evt-2", webhook.EventInventoryLevelUpdate,
			[]byte(`{"inventory_item_id":"inv-OTHER","location_id":"loc-1","available":3}`))
		require.NoError(t, err)

		assert.Equal(t, webhook.OutcomeFailed, out.Status)
		assert.Zero(t, f.ledger.Len())
	})
}

// failingReceipts fails every lookup
type failingReceipts struct{ webhook.ReceiptStore }

func (failingReceipts) Lookup(context.Context, string) (*webhook.Receipt, error) {
	return nil, errors.New("redis: connection refused")
}

func TestGateway_FailsClosedWhenReceiptsUnavailable(t *testing.T) {
	f := newGatewayFixture(t, testutil.NewMapping("SKU-1", testutil.WithQuantities(10, 10)))
	f.gateway.receipts = failingReceipts{}

	out, err := f.gateway.Ingest(context.Background(), "evt-1", webhook.EventOrderPaid, paidPayload("1", line("SKU-1", 1)))

	require.Error(t, err)
	assert.Equal(t, webhook.OutcomeFailed, out.Status)
	assert.Zero(t, f.ledger.Len())
}
