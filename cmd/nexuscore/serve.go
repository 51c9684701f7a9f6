package main

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Maeshowe/Nexus-Core/internal/obsmetrics"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an HTTP server exposing health, endpoints, and Prometheus metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			metricsReg := obsmetrics.NewRegistry(reg)
			ld.SetMetrics(metricsReg)

			router := mux.NewRouter()
			router.HandleFunc("/health", handleHealth).Methods(http.MethodGet)
			router.HandleFunc("/endpoints/{provider}", handleEndpoints).Methods(http.MethodGet)
			router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

			log.Info().Str("addr", addr).Msg("starting http server")
			return http.ListenAndServe(addr, router)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")
	return cmd
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	report := ld.GetAPIHealthReport()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

func handleEndpoints(w http.ResponseWriter, r *http.Request) {
	provider := mux.Vars(r)["provider"]
	names, err := ld.GetSupportedEndpoints(provider)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(names)
}
