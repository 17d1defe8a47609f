package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "cycles_total", Help: "Decision cycles run"},
	)
	FetchFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fetch_failures_total", Help: "Cycles skipped because market data was unavailable"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Signals emitted by verdict"},
		[]string{"verdict"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Orders submitted"},
		[]string{"symbol", "side"},
	)
	OrderRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "order_rejections_total", Help: "Orders rejected before or during submission"},
		[]string{"reason"},
	)
	RealizedPnL = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "realized_pnl", Help: "Running realized profit and loss"},
	)
)

func init() {
	prometheus.MustRegister(CyclesTotal, FetchFailuresTotal, SignalsTotal, OrdersTotal, OrderRejectionsTotal, RealizedPnL)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
