// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentNest Contributors

package auth

import "github.com/prometheus/client_golang/prometheus"

// Metrics contains the Prometheus counters recorded by the Service.
type Metrics struct {
	LoginAttempts *prometheus.CounterVec
	Lockouts      prometheus.Counter
	ResetRequests prometheus.Counter
	Registrations prometheus.Counter
}

// NewMetrics creates and registers the auth counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LoginAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentnest_login_attempts_total",
				Help: "Total number of login attempts by result",
			},
			[]string{"result"},
		),
		Lockouts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rentnest_lockouts_total",
				Help: "Total number of accounts locked out",
			},
		),
		ResetRequests: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rentnest_password_reset_requests_total",
				Help: "Total number of password reset requests",
			},
		),
		Registrations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rentnest_registrations_total",
				Help: "Total number of registered tenants",
			},
		),
	}

	reg.MustRegister(m.LoginAttempts)
	reg.MustRegister(m.Lockouts)
	reg.MustRegister(m.ResetRequests)
	reg.MustRegister(m.Registrations)

	return m
}

func (m *Metrics) loginSuccess() {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues("success").Inc()
}

func (m *Metrics) loginFailure() {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues("failure").Inc()
}

func (m *Metrics) lockout() {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues("locked").Inc()
	m.Lockouts.Inc()
}

func (m *Metrics) resetRequested() {
	if m == nil {
		return
	}
	m.ResetRequests.Inc()
}

func (m *Metrics) registered() {
	if m == nil {
		return
	}
	m.Registrations.Inc()
}
