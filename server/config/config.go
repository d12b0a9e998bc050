/*
 * Copyright 2024 The ScopeID Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/pelletier/go-toml/v2"
	"github.com/scopeid/scopeid/pkg/log"
	"github.com/scopeid/scopeid/server/id"
	"go.etcd.io/etcd/server/v3/embed"
)

const (
	StoreTypeEtcd      = "etcd"
	StoreTypeEmbedEtcd = "embed-etcd"
	StoreTypeBolt      = "bolt"
	StoreTypeSQLite    = "sqlite"
	StoreTypeMemory    = "memory"

	envPrefix = "SCOPEID_"

	defaultHTTPPort             = 8080
	defaultGrpcPort             = 8831
	defaultHTTPReadTimeoutMs    = 5 * 1000
	defaultHTTPWriteTimeoutMs   = 5 * 1000
	defaultGrpcHandleTimeoutMs  = 10 * 1000
	defaultEtcdStartTimeoutMs   = 10 * 1000
	defaultEtcdCallTimeoutMs    = 5 * 1000
	defaultEtcdDialTimeoutMs    = 5 * 1000
	defaultInitialLimiterRate   = 10 * 1000
	defaultInitialLimiterBurst  = 1000
	defaultEnableLimiter        = true
	defaultStoreType            = StoreTypeEtcd
	defaultEtcdEndpoints        = "127.0.0.1:2379"
	defaultRootPath             = "/scopeid"
	defaultBoltPath             = "/tmp/scopeid/seeds.db"
	defaultSQLitePath           = "/tmp/scopeid/seeds.sqlite3"
	defaultNodeNamePrefix       = "scopeid"
	defaultDataDir              = "/tmp/scopeid/data"
	defaultWalDir               = "/tmp/scopeid/wal"
	defaultClientUrls           = "http://127.0.0.1:2379"
	defaultPeerUrls             = "http://127.0.0.1:2380"
	defaultInitialClusterState  = embed.ClusterStateFlagNew
	defaultInitialClusterToken  = "scopeid-cluster" //#nosec G101
	defaultCompactionMode       = "periodic"
	defaultAutoCompactionPeriod = "1h"

	defaultTickIntervalMs    int64 = 500
	defaultElectionTimeoutMs       = 3000
	defaultQuotaBackendBytes       = 8 * 1024 * 1024 * 1024 // 8GB

	defaultMaxRequestBytes uint = 2 * 1024 * 1024 // 2MB
)

type GeneratorConfig struct {
	BatchSize        int64 `toml:"batch-size" env:"BATCH_SIZE"`
	MaxWriteAttempts int   `toml:"max-write-attempts" env:"MAX_WRITE_ATTEMPTS"`
	// InitialSeed is written to the store when a scope is used for the first time.
	InitialSeed int64 `toml:"initial-seed" env:"INITIAL_SEED"`
}

type LimiterConfig struct {
	Limit  int  `toml:"limit" env:"LIMIT" json:"limit"`
	Burst  int  `toml:"burst" env:"BURST" json:"burst"`
	Enable bool `toml:"enable" env:"ENABLE" json:"enable"`
}

// EmbedEtcdConfig is only used by the embed-etcd store.
type EmbedEtcdConfig struct {
	NodeName            string `toml:"node-name" env:"NODE_NAME"`
	DataDir             string `toml:"data-dir" env:"DATA_DIR"`
	WalDir              string `toml:"wal-dir" env:"WAL_DIR"`
	InitialCluster      string `toml:"initial-cluster" env:"INITIAL_CLUSTER"`
	InitialClusterState string `toml:"initial-cluster-state" env:"INITIAL_CLUSTER_STATE"`
	InitialClusterToken string `toml:"initial-cluster-token" env:"INITIAL_CLUSTER_TOKEN"`
	// TickInterval is the interval for etcd Raft tick.
	TickIntervalMs    int64 `toml:"tick-interval-ms" env:"TICK_INTERVAL_MS"`
	ElectionTimeoutMs int64 `toml:"election-timeout-ms" env:"ELECTION_TIMEOUT_MS"`
	// QuotaBackendBytes Raise alarms when backend size exceeds the given quota. 0 means use the default quota.
	// the default size is 2GB, the maximum is 8GB.
	QuotaBackendBytes int64 `toml:"quota-backend-bytes" env:"QUOTA_BACKEND_BYTES"`
	// AutoCompactionMode is either 'periodic' or 'revision'. The default value is 'periodic'.
	AutoCompactionMode string `toml:"auto-compaction-mode" env:"AUTO_COMPACTION_MODE"`
	// AutoCompactionRetention is either duration string with time unit
	// (e.g. '5m' for 5-minute), or revision unit (e.g. '5000').
	AutoCompactionRetention string `toml:"auto-compaction-retention" env:"AUTO_COMPACTION_RETENTION"`
	MaxRequestBytes         uint   `toml:"max-request-bytes" env:"MAX_REQUEST_BYTES"`

	ClientUrls          string `toml:"client-urls" env:"CLIENT_URLS"`
	PeerUrls            string `toml:"peer-urls" env:"PEER_URLS"`
	AdvertiseClientUrls string `toml:"advertise-client-urls" env:"ADVERTISE_CLIENT_URLS"`
	AdvertisePeerUrls   string `toml:"advertise-peer-urls" env:"ADVERTISE_PEER_URLS"`
}

type StoreConfig struct {
	// Type is one of etcd, embed-etcd, bolt, sqlite and memory.
	Type string `toml:"type" env:"TYPE"`
	// EtcdEndpoints is a comma separated list.
	EtcdEndpoints string `toml:"etcd-endpoints" env:"ETCD_ENDPOINTS"`
	RootPath      string `toml:"root-path" env:"ROOT_PATH"`
	BoltPath      string `toml:"bolt-path" env:"BOLT_PATH"`
	SQLitePath    string `toml:"sqlite-path" env:"SQLITE_PATH"`

	EmbedEtcd EmbedEtcdConfig `toml:"embed-etcd" envPrefix:"EMBED_ETCD_"`
}

type Config struct {
	Log         log.Config      `toml:"log" envPrefix:"LOG_"`
	Generator   GeneratorConfig `toml:"generator" envPrefix:"GENERATOR_"`
	Store       StoreConfig     `toml:"store" envPrefix:"STORE_"`
	FlowLimiter LimiterConfig   `toml:"flow-limiter" envPrefix:"FLOW_LIMITER_"`

	HTTPPort           int   `toml:"http-port" env:"HTTP_PORT"`
	GrpcPort           int   `toml:"grpc-port" env:"GRPC_PORT"`
	HTTPReadTimeoutMs  int64 `toml:"http-read-timeout-ms" env:"HTTP_READ_TIMEOUT_MS"`
	HTTPWriteTimeoutMs int64 `toml:"http-write-timeout-ms" env:"HTTP_WRITE_TIMEOUT_MS"`

	GrpcHandleTimeoutMs int64 `toml:"grpc-handle-timeout-ms" env:"GRPC_HANDLE_TIMEOUT_MS"`
	EtcdStartTimeoutMs  int64 `toml:"etcd-start-timeout-ms" env:"ETCD_START_TIMEOUT_MS"`
	EtcdCallTimeoutMs   int64 `toml:"etcd-call-timeout-ms" env:"ETCD_CALL_TIMEOUT_MS"`
	EtcdDialTimeoutMs   int64 `toml:"etcd-dial-timeout-ms" env:"ETCD_DIAL_TIMEOUT_MS"`
}

func (c *Config) GrpcHandleTimeout() time.Duration {
	return time.Duration(c.GrpcHandleTimeoutMs) * time.Millisecond
}

func (c *Config) EtcdStartTimeout() time.Duration {
	return time.Duration(c.EtcdStartTimeoutMs) * time.Millisecond
}

func (c *Config) EtcdCallTimeout() time.Duration {
	return time.Duration(c.EtcdCallTimeoutMs) * time.Millisecond
}

func (c *Config) EtcdDialTimeout() time.Duration {
	return time.Duration(c.EtcdDialTimeoutMs) * time.Millisecond
}

func (c *Config) HTTPReadTimeout() time.Duration {
	return time.Duration(c.HTTPReadTimeoutMs) * time.Millisecond
}

func (c *Config) HTTPWriteTimeout() time.Duration {
	return time.Duration(c.HTTPWriteTimeoutMs) * time.Millisecond
}

func (c *Config) EtcdEndpoints() []string {
	items := strings.Split(c.Store.EtcdEndpoints, ",")
	endpoints := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); len(item) > 0 {
			endpoints = append(endpoints, item)
		}
	}
	return endpoints
}

func (c *Config) IDConfig() id.Config {
	return id.Config{
		BatchSize:        c.Generator.BatchSize,
		MaxWriteAttempts: c.Generator.MaxWriteAttempts,
	}
}

// ValidateAndAdjust validates the config fields and adjusts some fields which should be adjusted.
// Return error if any field is invalid.
func (c *Config) ValidateAndAdjust() error {
	if c.Generator.MaxWriteAttempts < 1 {
		return ErrInvalidConfig.WithCausef("max-write-attempts must be a positive number, max-write-attempts:%d", c.Generator.MaxWriteAttempts)
	}
	if c.Generator.BatchSize < 1 {
		return ErrInvalidConfig.WithCausef("batch-size must be a positive number, batch-size:%d", c.Generator.BatchSize)
	}

	for _, port := range []int{c.HTTPPort, c.GrpcPort} {
		if port <= 0 || port > 65535 {
			return ErrInvalidConfig.WithCausef("invalid port:%d", port)
		}
	}
	if c.HTTPPort == c.GrpcPort {
		return ErrInvalidConfig.WithCausef("http port and grpc port are the same, port:%d", c.HTTPPort)
	}

	switch c.Store.Type {
	case StoreTypeEtcd:
		if len(c.EtcdEndpoints()) == 0 {
			return ErrInvalidConfig.WithCausef("etcd-endpoints is required by the etcd store")
		}
	case StoreTypeEmbedEtcd:
		if len(c.Store.EmbedEtcd.AdvertiseClientUrls) == 0 {
			c.Store.EmbedEtcd.AdvertiseClientUrls = c.Store.EmbedEtcd.ClientUrls
		}
		if len(c.Store.EmbedEtcd.AdvertisePeerUrls) == 0 {
			c.Store.EmbedEtcd.AdvertisePeerUrls = c.Store.EmbedEtcd.PeerUrls
		}
	case StoreTypeBolt:
		if len(c.Store.BoltPath) == 0 {
			return ErrInvalidConfig.WithCausef("bolt-path is required by the bolt store")
		}
	case StoreTypeSQLite:
		if len(c.Store.SQLitePath) == 0 {
			return ErrInvalidConfig.WithCausef("sqlite-path is required by the sqlite store")
		}
	case StoreTypeMemory:
	default:
		return ErrInvalidConfig.WithCausef("unknown store type:%s", c.Store.Type)
	}

	c.Store.RootPath = strings.TrimRight(c.Store.RootPath, "/")
	return nil
}

func (c *Config) GenEtcdConfig() (*embed.Config, error) {
	ec := c.Store.EmbedEtcd
	cfg := embed.NewConfig()

	cfg.Name = ec.NodeName
	cfg.Dir = ec.DataDir
	cfg.WalDir = ec.WalDir
	cfg.InitialCluster = ec.InitialCluster
	cfg.ClusterState = ec.InitialClusterState
	cfg.InitialClusterToken = ec.InitialClusterToken
	cfg.TickMs = uint(ec.TickIntervalMs)
	cfg.ElectionMs = uint(ec.ElectionTimeoutMs)
	cfg.AutoCompactionMode = ec.AutoCompactionMode
	cfg.AutoCompactionRetention = ec.AutoCompactionRetention
	cfg.QuotaBackendBytes = ec.QuotaBackendBytes
	cfg.MaxRequestBytes = ec.MaxRequestBytes
	cfg.LogLevel = c.Log.Level

	var err error
	cfg.LPUrls, err = parseUrls(ec.PeerUrls)
	if err != nil {
		return nil, err
	}

	cfg.APUrls, err = parseUrls(ec.AdvertisePeerUrls)
	if err != nil {
		return nil, err
	}

	cfg.LCUrls, err = parseUrls(ec.ClientUrls)
	if err != nil {
		return nil, err
	}

	cfg.ACUrls, err = parseUrls(ec.AdvertiseClientUrls)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parser builds the config from the flags, the config file and the environment variables.
//
// The precedence from low to high is: default values, config file, environment variables, explicitly set flags.
type Parser struct {
	flagSet    *flag.FlagSet
	cfg        *Config
	configFile string
}

func (p *Parser) Parse(arguments []string) (*Config, error) {
	if err := p.flagSet.Parse(arguments); err != nil {
		if err == flag.ErrHelp {
			return nil, ErrHelpRequested.WithCause(err)
		}
		return nil, ErrInvalidCommandArgs.WithCausef("original arguments:%v, parse err:%v", arguments, err)
	}

	if len(p.configFile) > 0 {
		if err := p.loadConfigFile(p.configFile); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(p.cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, ErrInvalidConfig.WithCausef("parse env, err:%v", err)
	}

	// Parse again so that the flags set explicitly override the file and the env.
	if err := p.flagSet.Parse(arguments); err != nil {
		return nil, ErrInvalidCommandArgs.WithCausef("original arguments:%v, parse err:%v", arguments, err)
	}

	return p.cfg, nil
}

func (p *Parser) loadConfigFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return ErrInvalidConfig.WithCausef("read config file:%s, err:%v", path, err)
	}

	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(p.cfg); err != nil {
		return ErrInvalidConfig.WithCausef("decode config file:%s, err:%v", path, err)
	}
	return nil
}

func makeDefaultNodeName() (string, error) {
	host, err := os.Hostname()
	if err != nil {
		return "", ErrRetrieveHostname.WithCause(err)
	}

	return fmt.Sprintf("%s-%s", defaultNodeNamePrefix, host), nil
}

func makeDefaultInitialCluster(nodeName string) string {
	return fmt.Sprintf("%s=%s", nodeName, defaultPeerUrls)
}

func MakeConfigParser() (*Parser, error) {
	fs, cfg := flag.NewFlagSet("scopeid", flag.ContinueOnError), &Config{}
	builder := &Parser{
		flagSet: fs,
		cfg:     cfg,
	}

	fs.StringVar(&builder.configFile, "config", "", "config file in toml format")

	fs.StringVar(&cfg.Log.Level, "log-level", log.DefaultLogLevel, "level of the log")
	fs.StringVar(&cfg.Log.File, "log-file", log.DefaultLogFile, "file for log output")

	fs.Int64Var(&cfg.Generator.BatchSize, "batch-size", id.DefaultBatchSize, "number of ids reserved from the store at once")
	fs.IntVar(&cfg.Generator.MaxWriteAttempts, "max-write-attempts", id.DefaultMaxWriteAttempts, "max conditional writes to reserve a batch of ids")
	fs.Int64Var(&cfg.Generator.InitialSeed, "initial-seed", 0, "seed of a scope used for the first time")

	fs.IntVar(&cfg.FlowLimiter.Limit, "flow-limit", defaultInitialLimiterRate, "rate of id requests per second")
	fs.IntVar(&cfg.FlowLimiter.Burst, "flow-burst", defaultInitialLimiterBurst, "max burst of id requests")
	fs.BoolVar(&cfg.FlowLimiter.Enable, "enable-flow-limiter", defaultEnableLimiter, "enable the flow limiter of id requests")

	fs.IntVar(&cfg.HTTPPort, "http-port", defaultHTTPPort, "port of the http service")
	fs.IntVar(&cfg.GrpcPort, "grpc-port", defaultGrpcPort, "port of the grpc service")
	fs.Int64Var(&cfg.HTTPReadTimeoutMs, "http-read-timeout-ms", defaultHTTPReadTimeoutMs, "read timeout of the http service")
	fs.Int64Var(&cfg.HTTPWriteTimeoutMs, "http-write-timeout-ms", defaultHTTPWriteTimeoutMs, "write timeout of the http service")
	fs.Int64Var(&cfg.GrpcHandleTimeoutMs, "grpc-handle-timeout-ms", defaultGrpcHandleTimeoutMs, "timeout for handling grpc requests")
	fs.Int64Var(&cfg.EtcdStartTimeoutMs, "etcd-start-timeout-ms", defaultEtcdStartTimeoutMs, "timeout for starting the embedded etcd server")
	fs.Int64Var(&cfg.EtcdCallTimeoutMs, "etcd-call-timeout-ms", defaultEtcdCallTimeoutMs, "timeout for calling etcd server")
	fs.Int64Var(&cfg.EtcdDialTimeoutMs, "etcd-dial-timeout-ms", defaultEtcdDialTimeoutMs, "timeout for dialing etcd server")

	fs.StringVar(&cfg.Store.Type, "store", defaultStoreType, "store of the id seeds: etcd, embed-etcd, bolt, sqlite or memory")
	fs.StringVar(&cfg.Store.EtcdEndpoints, "etcd-endpoints", defaultEtcdEndpoints, "comma separated endpoints of the etcd cluster")
	fs.StringVar(&cfg.Store.RootPath, "root-path", defaultRootPath, "root path of the seed keys in etcd")
	fs.StringVar(&cfg.Store.BoltPath, "bolt-path", defaultBoltPath, "file of the bolt store")
	fs.StringVar(&cfg.Store.SQLitePath, "sqlite-path", defaultSQLitePath, "file of the sqlite store")

	defaultNodeName, err := makeDefaultNodeName()
	if err != nil {
		return nil, err
	}
	ec := &cfg.Store.EmbedEtcd
	fs.StringVar(&ec.NodeName, "node-name", defaultNodeName, "member name of the embedded etcd")
	fs.StringVar(&ec.DataDir, "data-dir", defaultDataDir, "data directory for the embedded etcd")
	fs.StringVar(&ec.WalDir, "wal-dir", defaultWalDir, "wal directory for the embedded etcd")

	defaultInitialCluster := makeDefaultInitialCluster(defaultNodeName)
	fs.StringVar(&ec.InitialCluster, "initial-cluster", defaultInitialCluster, "members in the initial etcd cluster")
	fs.StringVar(&ec.InitialClusterState, "initial-cluster-state", defaultInitialClusterState, "state of the initial etcd cluster")
	fs.StringVar(&ec.InitialClusterToken, "initial-cluster-token", defaultInitialClusterToken, "token of the initial etcd cluster")

	fs.StringVar(&ec.ClientUrls, "client-urls", defaultClientUrls, "url for client traffic")
	fs.StringVar(&ec.AdvertiseClientUrls, "advertise-client-urls", "", "advertise url for client traffic (default '${client-urls}')")
	fs.StringVar(&ec.PeerUrls, "peer-urls", defaultPeerUrls, "url for peer traffic")
	fs.StringVar(&ec.AdvertisePeerUrls, "advertise-peer-urls", "", "advertise url for peer traffic (default '${peer-urls}')")

	fs.Int64Var(&ec.TickIntervalMs, "tick-interval-ms", defaultTickIntervalMs, "tick interval of the etcd server")
	fs.Int64Var(&ec.ElectionTimeoutMs, "election-timeout-ms", defaultElectionTimeoutMs, "election timeout of the etcd server")

	fs.Int64Var(&ec.QuotaBackendBytes, "quota-backend-bytes", defaultQuotaBackendBytes, "alarming threshold for too much memory consumption")
	fs.StringVar(&ec.AutoCompactionMode, "auto-compaction-mode", defaultCompactionMode, "mode of auto compaction of etcd server")
	fs.StringVar(&ec.AutoCompactionRetention, "auto-compaction-retention", defaultAutoCompactionPeriod, "retention for auto compaction(works only if auto-compaction-mode is periodic)")
	fs.UintVar(&ec.MaxRequestBytes, "max-request-bytes", defaultMaxRequestBytes, "max bytes of requests received by etcd server")

	return builder, nil
}
