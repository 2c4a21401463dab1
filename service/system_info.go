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

package service

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"

	"github.com/Netcracker/qubership-data-contract-validator/client"
	"github.com/Netcracker/qubership-data-contract-validator/db"
)

const (
	CONFIG_FILE               = "CONFIG_FILE"
	LISTEN_ADDRESS            = "LISTEN_ADDRESS"
	ORIGIN_ALLOWED            = "ORIGIN_ALLOWED"
	LOG_LEVEL                 = "LOG_LEVEL"
	LOG_FORMAT                = "LOG_FORMAT"
	API_KEY                   = "API_KEY"
	JWT_SECRET                = "JWT_SECRET"
	COVERAGE_THRESHOLD        = "COVERAGE_THRESHOLD"
	VALIDATION_WORKERS        = "VALIDATION_WORKERS"
	MAX_UPLOAD_SIZE_MB        = "MAX_UPLOAD_SIZE_MB"
	AI_PROVIDER               = "AI_PROVIDER"
	OPENAI_API_KEY            = "OPENAI_API_KEY"
	OPENAI_MODEL              = "OPENAI_MODEL"
	OPENAI_PROXY              = "OPENAI_PROXY"
	GEMINI_API_KEY            = "GEMINI_API_KEY"
	GEMINI_MODEL              = "GEMINI_MODEL"
	AI_TIMEOUT_SEC            = "AI_TIMEOUT_SEC"
	AI_MAX_RETRIES            = "AI_MAX_RETRIES"
	AI_RETRY_DELAY_MS         = "AI_RETRY_DELAY_MS"
	REPORT_STORE              = "REPORT_STORE"
	REPORT_TTL_MIN            = "REPORT_TTL_MIN"
	REPORT_CACHE_SIZE         = "REPORT_CACHE_SIZE"
	OLRIC_DISCOVERY_MODE      = "OLRIC_DISCOVERY_MODE"
	OLRIC_REPLICA_COUNT       = "OLRIC_REPLICA_COUNT"
	OLRIC_PEERS               = "OLRIC_PEERS"
	NAMESPACE                 = "NAMESPACE"
	DB_HOST                   = "DB_HOST"
	DB_PORT                   = "DB_PORT"
	DB_NAME                   = "DB_NAME"
	DB_USER                   = "DB_USER"
	DB_PASSWORD               = "DB_PASSWORD"
	DB_SSL_MODE               = "DB_SSL_MODE"
	REMOTE_FETCH_TIMEOUT_SEC  = "REMOTE_FETCH_TIMEOUT_SEC"
	REMOTE_FETCH_MAX_SIZE_MB  = "REMOTE_FETCH_MAX_SIZE_MB"
	HISTORY_DEFAULT_PAGE_SIZE = "HISTORY_DEFAULT_PAGE_SIZE"
	HISTORY_RETENTION_DAYS    = "HISTORY_RETENTION_DAYS"
)

const (
	ReportStoreMemory = "memory"
	ReportStoreOlric  = "olric"
)

var configKeys = []string{
	LISTEN_ADDRESS, ORIGIN_ALLOWED, LOG_LEVEL, LOG_FORMAT, API_KEY, JWT_SECRET,
	COVERAGE_THRESHOLD, VALIDATION_WORKERS, MAX_UPLOAD_SIZE_MB,
	AI_PROVIDER, OPENAI_API_KEY, OPENAI_MODEL, OPENAI_PROXY, GEMINI_API_KEY, GEMINI_MODEL,
	AI_TIMEOUT_SEC, AI_MAX_RETRIES, AI_RETRY_DELAY_MS,
	REPORT_STORE, REPORT_TTL_MIN, REPORT_CACHE_SIZE,
	OLRIC_DISCOVERY_MODE, OLRIC_REPLICA_COUNT, OLRIC_PEERS, NAMESPACE,
	DB_HOST, DB_PORT, DB_NAME, DB_USER, DB_PASSWORD, DB_SSL_MODE,
	REMOTE_FETCH_TIMEOUT_SEC, REMOTE_FETCH_MAX_SIZE_MB, HISTORY_DEFAULT_PAGE_SIZE, HISTORY_RETENTION_DAYS,
}

type SystemConfig struct {
	ListenAddress      string `koanf:"listen_address" validate:"required"`
	OriginAllowed      string `koanf:"origin_allowed"`
	LogLevel           string `koanf:"log_level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
	LogFormat          string `koanf:"log_format" validate:"omitempty,oneof=text json"`
	ApiKey             string `koanf:"api_key"`
	JwtSecret          string `koanf:"jwt_secret" validate:"omitempty,min=32"`
	CoverageThreshold  int    `koanf:"coverage_threshold" validate:"min=1"`
	ValidationWorkers  int    `koanf:"validation_workers" validate:"min=1,max=256"`
	MaxUploadSizeMb    int    `koanf:"max_upload_size_mb" validate:"min=1"`
	AiProvider         string `koanf:"ai_provider" validate:"omitempty,oneof=openai gemini"`
	OpenaiApiKey       string `koanf:"openai_api_key" validate:"required_if=AiProvider openai"`
	OpenaiModel        string `koanf:"openai_model"`
	OpenaiProxy        string `koanf:"openai_proxy" validate:"omitempty,url"`
	GeminiApiKey       string `koanf:"gemini_api_key" validate:"required_if=AiProvider gemini"`
	GeminiModel        string `koanf:"gemini_model"`
	AiTimeoutSec       int    `koanf:"ai_timeout_sec" validate:"min=1"`
	AiMaxRetries       int    `koanf:"ai_max_retries" validate:"min=1,max=10"`
	AiRetryDelayMs     int    `koanf:"ai_retry_delay_ms" validate:"min=0"`
	ReportStore        string `koanf:"report_store" validate:"oneof=memory olric"`
	ReportTtlMin       int    `koanf:"report_ttl_min" validate:"min=1"`
	ReportCacheSize    int    `koanf:"report_cache_size" validate:"min=1"`
	OlricDiscoveryMode string `koanf:"olric_discovery_mode" validate:"omitempty,oneof=local lan"`
	OlricReplicaCount  int    `koanf:"olric_replica_count" validate:"min=0"`
	OlricPeers         string `koanf:"olric_peers"`
	Namespace          string `koanf:"namespace"`
	DbHost             string `koanf:"db_host"`
	DbPort             int    `koanf:"db_port" validate:"min=0,max=65535"`
	DbName             string `koanf:"db_name" validate:"required_with=DbHost"`
	DbUser             string `koanf:"db_user" validate:"required_with=DbHost"`
	DbPassword         string `koanf:"db_password"`
	DbSslMode          string `koanf:"db_ssl_mode" validate:"omitempty,oneof=disable require"`
	RemoteFetchTimeout int    `koanf:"remote_fetch_timeout_sec" validate:"min=1"`
	RemoteFetchMaxMb   int    `koanf:"remote_fetch_max_size_mb" validate:"min=1"`
	HistoryPageSize    int    `koanf:"history_default_page_size" validate:"min=1,max=1000"`
	HistoryRetention   int    `koanf:"history_retention_days" validate:"min=0"`
}

func defaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"listen_address":            ":8080",
		"log_level":                 "info",
		"log_format":                "text",
		"coverage_threshold":        1,
		"validation_workers":        4,
		"max_upload_size_mb":        50,
		"ai_timeout_sec":            60,
		"ai_max_retries":            5,
		"ai_retry_delay_ms":         2000,
		"report_store":              ReportStoreMemory,
		"report_ttl_min":            60,
		"report_cache_size":         500,
		"db_port":                   5432,
		"db_ssl_mode":               "disable",
		"remote_fetch_timeout_sec":  30,
		"remote_fetch_max_size_mb":  50,
		"history_default_page_size": 50,
		"history_retention_days":    30,
	}
}

type SystemInfoService interface {
	Init() error
	GetConfig() SystemConfig
	GetListenAddress() string
	GetOriginAllowed() string
	GetLogLevel() string
	GetLogFormat() string
	GetApiKey() string
	GetJwtSecret() string
	GetCoverageThreshold() int
	GetValidationWorkers() int
	GetMaxUploadSize() int64
	GetSuggestionClientConfig() client.SuggestionClientConfig
	GetAiTimeout() time.Duration
	GetReportStore() string
	GetReportTtl() time.Duration
	GetReportCacheSize() int
	GetOlricDiscoveryMode() string
	GetOlricReplicaCount() int
	GetOlricPeers() string
	GetNamespace() string
	IsHistoryEnabled() bool
	GetDbCredentials() db.DbCredentials
	GetRemoteFetchTimeout() time.Duration
	GetRemoteFetchMaxSize() int64
	GetHistoryPageSize() int
	GetHistoryRetention() time.Duration
}

func NewSystemInfoService() (SystemInfoService, error) {
	s := &systemInfoServiceImpl{configFile: os.Getenv(CONFIG_FILE)}
	if err := s.Init(); err != nil {
		log.Error("Failed to read system info: " + err.Error())
		return nil, err
	}
	return s, nil
}

type systemInfoServiceImpl struct {
	configFile string
	conf       SystemConfig
}

// Init loads defaults, then the optional json CONFIG_FILE, then environment variables.
func (g *systemInfoServiceImpl) Init() error {
	k := koanf.New(".")
	for key, value := range defaultConfig() {
		if err := k.Set(key, value); err != nil {
			return err
		}
	}

	if g.configFile != "" {
		if _, err := os.Stat(g.configFile); err != nil {
			return fmt.Errorf("config file %s is not available: %w", g.configFile, err)
		}
		if err := k.Load(file.Provider(g.configFile), json.Parser()); err != nil {
			return fmt.Errorf("failed to load config file %s: %w", g.configFile, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return fmt.Errorf("failed to load environment: %w", err)
	}

	var conf SystemConfig
	if err := k.Unmarshal("", &conf); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validator.New().Struct(conf); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if conf.ReportStore == ReportStoreOlric && conf.OlricDiscoveryMode == "lan" && conf.Namespace == "" {
		return fmt.Errorf("%s is required for olric lan discovery", NAMESPACE)
	}
	g.conf = conf
	return nil
}

// envTransform maps known variables to config keys and drops the rest of the environment.
func envTransform(s string) string {
	for _, key := range configKeys {
		if s == key {
			return strings.ToLower(s)
		}
	}
	return ""
}

func (g systemInfoServiceImpl) GetConfig() SystemConfig {
	return g.conf
}

func (g systemInfoServiceImpl) GetListenAddress() string {
	return g.conf.ListenAddress
}

func (g systemInfoServiceImpl) GetOriginAllowed() string {
	return g.conf.OriginAllowed
}

func (g systemInfoServiceImpl) GetLogLevel() string {
	return g.conf.LogLevel
}

func (g systemInfoServiceImpl) GetLogFormat() string {
	return g.conf.LogFormat
}

func (g systemInfoServiceImpl) GetApiKey() string {
	return g.conf.ApiKey
}

func (g systemInfoServiceImpl) GetJwtSecret() string {
	return g.conf.JwtSecret
}

func (g systemInfoServiceImpl) GetCoverageThreshold() int {
	return g.conf.CoverageThreshold
}

func (g systemInfoServiceImpl) GetValidationWorkers() int {
	return g.conf.ValidationWorkers
}

func (g systemInfoServiceImpl) GetMaxUploadSize() int64 {
	return int64(g.conf.MaxUploadSizeMb) << 20
}

func (g systemInfoServiceImpl) GetSuggestionClientConfig() client.SuggestionClientConfig {
	retry := client.DefaultRetryPolicy()
	retry.MaxAttempts = g.conf.AiMaxRetries
	retry.InitialDelay = time.Duration(g.conf.AiRetryDelayMs) * time.Millisecond
	return client.SuggestionClientConfig{
		Provider:     g.conf.AiProvider,
		OpenaiApiKey: g.conf.OpenaiApiKey,
		OpenaiModel:  g.conf.OpenaiModel,
		OpenaiProxy:  g.conf.OpenaiProxy,
		GeminiApiKey: g.conf.GeminiApiKey,
		GeminiModel:  g.conf.GeminiModel,
		Timeout:      g.GetAiTimeout(),
		Retry:        retry,
	}
}

func (g systemInfoServiceImpl) GetAiTimeout() time.Duration {
	return time.Duration(g.conf.AiTimeoutSec) * time.Second
}

func (g systemInfoServiceImpl) GetReportStore() string {
	return g.conf.ReportStore
}

func (g systemInfoServiceImpl) GetReportTtl() time.Duration {
	return time.Duration(g.conf.ReportTtlMin) * time.Minute
}

func (g systemInfoServiceImpl) GetReportCacheSize() int {
	return g.conf.ReportCacheSize
}

func (g systemInfoServiceImpl) GetOlricDiscoveryMode() string {
	return g.conf.OlricDiscoveryMode
}

func (g systemInfoServiceImpl) GetOlricReplicaCount() int {
	return g.conf.OlricReplicaCount
}

func (g systemInfoServiceImpl) GetOlricPeers() string {
	return g.conf.OlricPeers
}

func (g systemInfoServiceImpl) GetNamespace() string {
	return g.conf.Namespace
}

func (g systemInfoServiceImpl) IsHistoryEnabled() bool {
	return g.conf.DbHost != ""
}

func (g systemInfoServiceImpl) GetDbCredentials() db.DbCredentials {
	return db.DbCredentials{
		Host:     g.conf.DbHost,
		Port:     g.conf.DbPort,
		Database: g.conf.DbName,
		Username: g.conf.DbUser,
		Password: g.conf.DbPassword,
		SSLMode:  g.conf.DbSslMode,
	}
}

func (g systemInfoServiceImpl) GetRemoteFetchTimeout() time.Duration {
	return time.Duration(g.conf.RemoteFetchTimeout) * time.Second
}

func (g systemInfoServiceImpl) GetRemoteFetchMaxSize() int64 {
	return int64(g.conf.RemoteFetchMaxMb) << 20
}

func (g systemInfoServiceImpl) GetHistoryPageSize() int {
	return g.conf.HistoryPageSize
}

func (g systemInfoServiceImpl) GetHistoryRetention() time.Duration {
	return time.Duration(g.conf.HistoryRetention) * 24 * time.Hour
}
