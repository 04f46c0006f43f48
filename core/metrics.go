package core

import "github.com/prometheus/client_golang/prometheus"

const prometheusNamespace = "ethprovider"

var RequestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: prometheusNamespace,
	Name:      "rpc_requests_total",
	Help:      "Number of JSON-RPC requests sent to the backend",
}, []string{"method"})

var RequestErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: prometheusNamespace,
	Name:      "rpc_request_errors_total",
	Help:      "Number of JSON-RPC requests that failed",
}, []string{"method"})
