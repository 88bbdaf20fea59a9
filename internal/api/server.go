package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// StartServer serves handler on addr and returns listening URL and stop function.
func StartServer(addr string, handler http.Handler, readTimeout time.Duration) (string, func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listen API addr [%v]", addr)
	}

	if readTimeout <= 0 {
		readTimeout = 5 * time.Second
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: time.Second, ReadTimeout: readTimeout}
	return serve(srv, listener, "")
}

// StartMetricsServer serves prometheus metrics on addr.
func StartMetricsServer(addr string) (string, func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listen metrics API addr [%v]", addr)
	}

	router := mux.NewRouter()
	router.PathPrefix("/metrics").Handler(promhttp.Handler())
	handler := handlers.CompressHandler(router)

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: time.Second, ReadTimeout: 5 * time.Second}
	return serve(srv, listener, "/metrics")
}

func serve(srv *http.Server, listener net.Listener, path string) (string, func(), error) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Str("addr", listener.Addr().String()).Msg("http server")
		}
	}()
	return "http://" + listener.Addr().String() + path, func() {
		if err := srv.Close(); err != nil {
			log.Err(err).Msg("closing http server")
		}
		wg.Wait()
	}, nil
}
