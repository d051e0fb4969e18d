package auth

import "github.com/prometheus/client_golang/prometheus"

// Metrics は認証処理の件数を記録します。nil のままでも呼び出せます。
type Metrics struct {
	logins         *prometheus.CounterVec
	signUps        *prometheus.CounterVec
	sessionLookups *prometheus.CounterVec
}

// NewMetrics はカウンターを作成して reg に登録します。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "passgate",
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		signUps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "passgate",
			Name:      "signups_total",
			Help:      "Sign-up submissions by outcome.",
		}, []string{"outcome"}),
		sessionLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "passgate",
			Name:      "session_identity_lookups_total",
			Help:      "Session identity resolutions by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.logins, m.signUps, m.sessionLookups)
	return m
}

func (m *Metrics) login(r Result) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(r.Label()).Inc()
}

func (m *Metrics) signUp(outcome string) {
	if m == nil {
		return
	}
	m.signUps.WithLabelValues(outcome).Inc()
}

func (m *Metrics) sessionLookup(result string) {
	if m == nil {
		return
	}
	m.sessionLookups.WithLabelValues(result).Inc()
}
