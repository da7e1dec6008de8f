package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector records console activity as Prometheus metrics.
type Collector struct {
	navigation    *prometheus.CounterVec
	guard         *prometheus.CounterVec
	logins        *prometheus.CounterVec
	reconnects    prometheus.Counter
	notifications prometheus.Counter
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		navigation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_navigation_resolved_total",
			Help: "Navigation resolutions by source (server or static).",
		}, []string{"source"}),
		guard: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_route_guard_decisions_total",
			Help: "Route guard outcomes.",
		}, []string{"outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_login_attempts_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "console_push_reconnects_total",
			Help: "Push channel reconnect attempts.",
		}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "console_notifications_received_total",
			Help: "Notifications delivered over the push channel.",
		}),
	}
	reg.MustRegister(c.navigation, c.guard, c.logins, c.reconnects, c.notifications)
	return c
}

func (c *Collector) NavigationResolved(source string) { c.navigation.WithLabelValues(source).Inc() }
func (c *Collector) GuardDecision(outcome string)     { c.guard.WithLabelValues(outcome).Inc() }
func (c *Collector) LoginAttempt(result string)       { c.logins.WithLabelValues(result).Inc() }
func (c *Collector) PushReconnect()                   { c.reconnects.Inc() }
func (c *Collector) NotificationReceived()            { c.notifications.Inc() }
