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

package client

import (
	"context"
	"encoding/gob"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/buraksezer/olric"
	discovery "github.com/buraksezer/olric-cloud-plugin/lib"
	"github.com/buraksezer/olric/config"
	log "github.com/sirupsen/logrus"
)

// OlricProvider starts an embedded olric node that shares validation runs between service replicas.
type OlricProvider interface {
	Get() *olric.Olric
	GetBindAddr() string
	Shutdown(ctx context.Context) error
}

type OlricConfig struct {
	DiscoveryMode string
	ReplicaCount  int
	Namespace     string
	Peers         string
}

const (
	olricBindAddr     = "0.0.0.0"
	olricClusterLabel = "olric-cluster=contract-validator"
	olricLocalParts   = 5
)

type olricProviderImpl struct {
	cfg     *config.Config
	db      *olric.Olric
	started chan struct{}
}

// NewOlricProvider returns immediately, Get and GetBindAddr block until the node has joined the cluster.
func NewOlricProvider(conf OlricConfig) (OlricProvider, error) {
	cfg, err := buildOlricConfig(conf)
	if err != nil {
		return nil, err
	}
	gob.Register(map[string]interface{}{})

	prov := &olricProviderImpl{cfg: cfg, started: make(chan struct{})}
	cfg.Started = func() { close(prov.started) }

	prov.db, err = olric.New(cfg)
	if err != nil {
		return nil, err
	}
	go func() {
		if err := prov.db.Start(); err != nil {
			log.Panicf("Olric cache node cannot be started. Error: %s", err.Error())
		}
	}()
	return prov, nil
}

func (op *olricProviderImpl) Get() *olric.Olric {
	<-op.started
	return op.db
}

func (op *olricProviderImpl) GetBindAddr() string {
	<-op.started
	return fmt.Sprintf("%s:%d", op.cfg.BindAddr, op.cfg.BindPort)
}

func (op *olricProviderImpl) Shutdown(ctx context.Context) error {
	return op.db.Shutdown(ctx)
}

func buildOlricConfig(conf OlricConfig) (*config.Config, error) {
	var cfg *config.Config
	switch conf.DiscoveryMode {
	case "", "local":
		cfg = config.New("local")
		bindPort, err := freePort()
		if err != nil {
			return nil, err
		}
		memberPort, err := freePort()
		if err != nil {
			return nil, err
		}
		cfg.BindAddr = olricBindAddr
		cfg.BindPort = bindPort
		cfg.MemberlistConfig.BindAddr = olricBindAddr
		cfg.MemberlistConfig.BindPort = memberPort
		cfg.PartitionCount = olricLocalParts
		cfg.Peers = parsePeers(conf.Peers)
		log.Infof("Olric runs in local mode with %d static peer(s)", len(cfg.Peers))

	case "lan":
		if conf.Namespace == "" {
			return nil, fmt.Errorf("namespace is required for olric lan discovery")
		}
		replicas := conf.ReplicaCount
		if replicas < 1 {
			replicas = 1
		}
		cfg = config.New("lan")
		cfg.ServiceDiscovery = map[string]interface{}{
			"plugin":   &discovery.CloudDiscovery{},
			"provider": "k8s",
			"args":     fmt.Sprintf("namespace=%s label_selector=\"%s\"", conf.Namespace, olricClusterLabel),
		}
		cfg.PartitionCount = uint64(replicas * 4)
		cfg.ReplicaCount = replicas
		cfg.MemberCountQuorum = int32(replicas)
		cfg.BootstrapTimeout = 60 * time.Second
		cfg.MaxJoinAttempts = 60
		log.Infof("Olric runs in lan mode in namespace %s with %d replica(s)", conf.Namespace, replicas)

	default:
		return nil, fmt.Errorf("unknown olric discovery mode %q", conf.DiscoveryMode)
	}
	cfg.LogLevel = "WARN"
	cfg.LogVerbosity = 2
	return cfg, nil
}

// parsePeers splits a comma separated host:port list of memberlist peers.
func parsePeers(peers string) []string {
	var result []string
	for _, p := range strings.Split(peers, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// freePort asks the kernel for an unused port.
func freePort() (int, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort(olricBindAddr, "0"))
	if err != nil {
		return 0, err
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port, nil
}
