package demo

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
	"github.com/pthm/openwire"
)

// PriceAlias is the layout alias of the legacy price block.
const PriceAlias = "catalog/product.price"

// DefaultPrices maps product ids to prices in cents.
var DefaultPrices = map[int]int{
	1: 1999,
	2: 4550,
	3: 100,
}

// NewPriceBlock creates the legacy price block. It only knows how to render
// the price of data["product_id"]; the wrapper's load action switches the
// product.
func NewPriceBlock(prices map[int]int) *openwire.TemplBlock {
	return openwire.NewTemplBlock(func(data map[string]any) templ.Component {
		id := openwire.Int(data["product_id"])
		return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			cents, ok := prices[id]
			if !ok {
				_, err := io.WriteString(w, `<div class="price" openwire="price"><span class="unavailable">Unavailable</span><button @click="refresh">Refresh</button></div>`)
				return err
			}
			_, err := fmt.Fprintf(w, `<div class="price" openwire="price"><span data-product="%d">$%d.%02d</span><button @click="refresh">Refresh</button></div>`, id, cents/100, cents%100)
			return err
		})
	})
}
