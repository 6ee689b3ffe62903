package main

import (
	"context"
	"net/http"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/delta10/wfs-filter-proxy/internal/config"
	"github.com/delta10/wfs-filter-proxy/internal/proxy"
)

func main() {
	configPath := os.Getenv("FILTER_PROXY_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}

	config, err := config.NewConfig(configPath)
	if err != nil {
		log.Fatalln(err)
	}

	level, err := log.ParseLevel(config.LogLevel)
	if err != nil {
		log.Fatalln(err)
	}
	log.SetLevel(level)
	log.SetFormatter(&log.JSONFormatter{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := proxy.New(ctx, config)
	if err != nil {
		log.Fatalln(err)
	}

	router, err := p.Router()
	if err != nil {
		log.Fatalln(err)
	}

	s := &http.Server{
		Addr:           config.ListenAddress,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.WithField("address", config.ListenAddress).Info("listening")
	if config.ListenTLS.Certificate != "" && config.ListenTLS.Key != "" {
		log.Fatal(s.ListenAndServeTLS(config.ListenTLS.Certificate, config.ListenTLS.Key))
	} else {
		log.Fatal(s.ListenAndServe())
	}
}
