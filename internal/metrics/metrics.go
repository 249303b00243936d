package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersCreated counts finalized checkouts.
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "menu_orders_created_total",
		Help: "Number of orders created from carts.",
	})

	// CartMutations counts cart mutations by operation.
	CartMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menu_cart_mutations_total",
		Help: "Number of cart mutations by operation.",
	}, []string{"op"})
)
