package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentPurchases fires many concurrent purchases against the same
// wallet to verify that serialized balance updates prevent double-spending.
// Total requested exactly equals the opening balance, so every request must
// succeed and the final balance must be zero.
func TestConcurrentPurchases(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	concurrency := 50
	purchaseAmount := int64(1000)
	openingBalance := int64(concurrency) * purchaseAmount

	app.enroll(t, "w-conc-001", openingBalance, purchaseAmount)

	var wg sync.WaitGroup
	var succeeded int64

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			body, _ := json.Marshal(map[string]interface{}{
				"wallet_id": "w-conc-001",
				"amount":    purchaseAmount,
				"vendor":    "Campus Cafe",
				"order_id":  fmt.Sprintf("conc-order-%03d", n),
			})
			resp, err := http.Post(app.server.URL+"/api/v1/purchases", "application/json", bytes.NewReader(body))
			if err != nil {
				return
			}
			defer resp.Body.Close()
			if resp.StatusCode == http.StatusCreated {
				atomic.AddInt64(&succeeded, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(concurrency), succeeded)

	_, body := app.get(t, "/api/v1/wallets/w-conc-001")
	assert.Equal(t, float64(0), body["data"].(map[string]interface{})["balance"])

	// One ledger entry per purchase plus the enrollment allocation
	_, txBody := app.get(t, "/api/v1/transactions?wallet_id=w-conc-001")
	assert.Equal(t, float64(concurrency+1), txBody["data"].(map[string]interface{})["total"])
}

// TestConcurrentDuplicateOrder resubmits the same order id from many
// goroutines at once. Exactly one deduction may be applied; every response
// must return the same transaction.
func TestConcurrentDuplicateOrder(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.enroll(t, "w-conc-002", 50000, 2500)

	concurrency := 20
	var wg sync.WaitGroup
	txnIDs := make([]string, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			body, _ := json.Marshal(map[string]interface{}{
				"wallet_id": "w-conc-002",
				"amount":    2000,
				"vendor":    "Juice Bar",
				"order_id":  "conc-dup-order",
			})
			resp, err := http.Post(app.server.URL+"/api/v1/purchases", "application/json", bytes.NewReader(body))
			if err != nil {
				return
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusCreated {
				return
			}
			var decoded map[string]interface{}
			if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
				return
			}
			txn := decoded["data"].(map[string]interface{})["transaction"].(map[string]interface{})
			txnIDs[n] = txn["id"].(string)
		}(i)
	}
	wg.Wait()

	for n, id := range txnIDs {
		require.NotEmpty(t, id, "request %d did not succeed", n)
		assert.Equal(t, txnIDs[0], id)
	}

	// Only one deduction applied
	_, body := app.get(t, "/api/v1/wallets/w-conc-002")
	assert.Equal(t, float64(48000), body["data"].(map[string]interface{})["balance"])
}
