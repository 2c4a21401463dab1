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

package db

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/go-pg/pg/v10"
	log "github.com/sirupsen/logrus"
)

type DbCredentials struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string
}

type ConnectionProvider interface {
	GetConnection() *pg.DB
	Ping(ctx context.Context) error
	Close() error
}

func NewConnectionProvider(creds DbCredentials) ConnectionProvider {
	return &connectionProviderImpl{creds: creds}
}

type connectionProviderImpl struct {
	creds DbCredentials
	db    *pg.DB
	once  sync.Once
}

func (c *connectionProviderImpl) GetConnection() *pg.DB {
	c.once.Do(func() {
		opts := &pg.Options{
			Addr:        fmt.Sprintf("%s:%d", c.creds.Host, c.creds.Port),
			User:        c.creds.Username,
			Password:    c.creds.Password,
			Database:    c.creds.Database,
			PoolSize:    10,
			DialTimeout: 10 * time.Second,
			ReadTimeout: 30 * time.Second,
		}
		if c.creds.SSLMode == "require" {
			opts.TLSConfig = &tls.Config{InsecureSkipVerify: true}
		}
		log.Infof("Connecting to database %s at %s", c.creds.Database, opts.Addr)
		c.db = pg.Connect(opts)
	})
	return c.db
}

func (c *connectionProviderImpl) Ping(ctx context.Context) error {
	return c.GetConnection().Ping(ctx)
}

func (c *connectionProviderImpl) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}
