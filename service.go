// Copyright 2024-2025 NetCracker Technology Corporation
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Netcracker/qubership-data-contract-validator/client"
	"github.com/Netcracker/qubership-data-contract-validator/controller"
	"github.com/Netcracker/qubership-data-contract-validator/db"
	"github.com/Netcracker/qubership-data-contract-validator/repository"
	"github.com/Netcracker/qubership-data-contract-validator/security"
	"github.com/Netcracker/qubership-data-contract-validator/service"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if !errors.Is(err, errValidationFailed) {
			log.Error(err.Error())
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "contract-validator",
		Short:         "Validates datasets against data contracts and reports constraint coverage",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	})
	root.AddCommand(newCheckCommand())
	return root
}

func configureLogging(level string, format string) {
	if format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}

func serve() error {
	readyChan := make(chan bool)
	systemInfoService, err := service.NewSystemInfoService()
	if err != nil {
		return err
	}
	configureLogging(systemInfoService.GetLogLevel(), systemInfoService.GetLogFormat())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = security.SetupGoGuardian(systemInfoService.GetApiKey(), systemInfoService.GetJwtSecret()); err != nil {
		return err
	}
	if !security.Enabled() {
		log.Warn("API_KEY and JWT_SECRET are not set, the API is not protected")
	}

	var olricProvider client.OlricProvider
	var runStore service.RunStore
	switch systemInfoService.GetReportStore() {
	case service.ReportStoreOlric:
		olricProvider, err = client.NewOlricProvider(client.OlricConfig{
			DiscoveryMode: systemInfoService.GetOlricDiscoveryMode(),
			ReplicaCount:  systemInfoService.GetOlricReplicaCount(),
			Namespace:     systemInfoService.GetNamespace(),
			Peers:         systemInfoService.GetOlricPeers(),
		})
		if err != nil {
			return err
		}
		runStore = service.NewOlricRunStore(olricProvider, systemInfoService.GetReportCacheSize(), systemInfoService.GetReportTtl())
	default:
		runStore = service.NewMemoryRunStore(systemInfoService.GetReportCacheSize(), systemInfoService.GetReportTtl())
	}

	var cp db.ConnectionProvider
	var runRepository repository.RunRepository
	if systemInfoService.IsHistoryEnabled() {
		cp = db.NewConnectionProvider(systemInfoService.GetDbCredentials())
		runRepository = repository.NewRunRepository(cp)
		if err = runRepository.Init(ctx); err != nil {
			return err
		}
		service.NewCleanupService(runRepository, systemInfoService.GetHistoryRetention()).Start(ctx)
	} else {
		log.Info("DB_HOST is not set, run history is disabled")
	}

	suggestionClient, err := client.NewSuggestionClient(ctx, systemInfoService.GetSuggestionClientConfig())
	if err != nil {
		return err
	}
	if suggestionClient == nil {
		log.Info("AI_PROVIDER is not set, AI suggestions are disabled")
	}

	fileClient := client.NewRemoteFileClient(systemInfoService.GetRemoteFetchTimeout(), systemInfoService.GetRemoteFetchMaxSize())
	validationService := service.NewValidationService(runStore, runRepository, fileClient, service.ValidationConfig{
		Threshold: systemInfoService.GetCoverageThreshold(),
		Workers:   systemInfoService.GetValidationWorkers(),
	})
	suggestionService := service.NewSuggestionService(suggestionClient, validationService, systemInfoService.GetAiTimeout(), systemInfoService.GetValidationWorkers())

	validationController := controller.NewValidationController(validationService, systemInfoService.GetMaxUploadSize(), systemInfoService.GetHistoryPageSize())
	suggestionController := controller.NewSuggestionController(suggestionService)
	healthController := controller.NewHealthController(readyChan)

	router := mux.NewRouter()
	router.HandleFunc("/api/v1/validate", security.Wrap(validationController.Validate)).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/runs/{runId}", security.Wrap(validationController.GetRun)).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/runs/{runId}/export/markdown", security.Wrap(validationController.ExportMarkdown)).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/runs/{runId}/export/csv", security.Wrap(validationController.ExportCsv)).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/runs/{runId}/suggestions/testcases", security.Wrap(suggestionController.SuggestTestCases)).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/runs/{runId}/suggestions/schema", security.Wrap(suggestionController.SuggestSchemaImprovements)).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/runs/{runId}/generate", security.Wrap(suggestionController.GenerateRows)).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/runs/{runId}/infer-schema", security.Wrap(suggestionController.InferSchema)).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/history", security.Wrap(validationController.GetHistory)).Methods(http.MethodGet)

	router.HandleFunc("/live", healthController.HandleLiveRequest).Methods(http.MethodGet)
	router.HandleFunc("/ready", healthController.HandleReadyRequest).Methods(http.MethodGet)
	readyChan <- true
	close(readyChan)

	debug.SetGCPercent(30)

	srv := makeServer(systemInfoService, router)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err = <-serverErr:
	case <-ctx.Done():
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		err = srv.Shutdown(shutdownCtx)
		if olricProvider != nil {
			if olricErr := olricProvider.Shutdown(shutdownCtx); olricErr != nil {
				log.Errorf("Failed to shutdown olric: %s", olricErr.Error())
			}
		}
	}
	if cp != nil {
		if dbErr := cp.Close(); dbErr != nil {
			log.Errorf("Failed to close db connection: %s", dbErr.Error())
		}
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func makeServer(systemInfoService service.SystemInfoService, r *mux.Router) *http.Server {
	listenAddr := systemInfoService.GetListenAddress()

	log.Infof("Listen addr = %s", listenAddr)

	var corsOptions []handlers.CORSOption

	corsOptions = append(corsOptions, handlers.AllowedHeaders([]string{"Connection", "Accept-Encoding", "Content-Encoding", "X-Requested-With", "Content-Type", "Authorization", security.ApiKeyHeader}))

	allowedOrigin := systemInfoService.GetOriginAllowed()
	if allowedOrigin != "" {
		corsOptions = append(corsOptions, handlers.AllowedOrigins([]string{allowedOrigin}))
	}
	corsOptions = append(corsOptions, handlers.AllowedMethods([]string{"GET", "HEAD", "POST", "PUT", "OPTIONS"}))

	return &http.Server{
		Handler:      handlers.CompressHandler(handlers.CORS(corsOptions...)(r)),
		Addr:         listenAddr,
		WriteTimeout: 600 * time.Second,
		ReadTimeout:  60 * time.Second,
	}
}
