package sender

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"

	"bitbucket.org/mmdatafocus/orders_backend/models"
	"bitbucket.org/mmdatafocus/orders_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxPaddedKB keeps padded bodies under the usual 256 KB transport payload
// cap with headroom for the rest of the batch request.
const MaxPaddedKB = 240

// SyntheticEntry builds one synthetic order event. sizeKB > 0 pads the body
// with an opaque field up to roughly the target size; the pipeline carries
// the padding through to storage untouched.
func SyntheticEntry(id string, sizeKB int) (models.SendEntry, error) {
	amount := decimal.NewFromFloat(10 + rand.Float64()*1190).Round(2)
	payload := map[string]interface{}{
		"order_id": uuid.NewString(),
		"user_id":  fmt.Sprintf("user-%d", rand.Intn(999)+1),
		"amount":   json.Number(amount.String()),
		"currency": models.DefaultCurrency,
		"items": []map[string]interface{}{
			{
				"sku": fmt.Sprintf("SKU-%d", rand.Intn(900)+100),
				"qty": json.Number(fmt.Sprintf("%d", rand.Intn(5)+1)),
			},
		},
	}

	body, err := utils.MarshalToJSON(payload)
	if err != nil {
		return models.SendEntry{}, err
	}

	if sizeKB > 0 {
		if sizeKB > MaxPaddedKB {
			sizeKB = MaxPaddedKB
		}
		target := sizeKB * 1024
		// Account for the `,"padding":""` wrapper itself.
		overhead := len(`,"padding":""`)
		if pad := target - len(body) - overhead; pad > 0 {
			payload["padding"] = strings.Repeat("x", pad)
			body, err = utils.MarshalToJSON(payload)
			if err != nil {
				return models.SendEntry{}, err
			}
		}
	}

	return models.SendEntry{ID: id, Body: body}, nil
}
