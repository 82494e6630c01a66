// Package influx exports war metrics to InfluxDB. When the server is
// unreachable points are written as line protocol to a gzipped backup file
// that can be imported later.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	// BucketWarData holds per-action and per-turn war points.
	BucketWarData = "war_data"
	// BucketPerformance holds the status reports of the server.
	BucketPerformance = "warcore_performance"
)

var DefaultBucketNames = []string{BucketWarData, BucketPerformance}

// ErrDisabled is returned by Connect when influx.enabled is false.
var ErrDisabled = errors.New("influx is disabled")

// Config is the influx section of the config file.
type Config struct {
	Enabled       bool
	URL           string
	Token         string
	Org           string
	RetentionDays int
}

// ConfigFromViper reads the influx.* keys.
func ConfigFromViper() Config {
	return Config{
		Enabled: viper.GetBool("influx.enabled"),
		URL: fmt.Sprintf("%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		Token:         viper.GetString("influx.token"),
		Org:           viper.GetString("influx.org"),
		RetentionDays: viper.GetInt("influx.retentionDays"),
	}
}

// Manager writes points to one bucket writer each, or to the backup file
// while InfluxDB cannot be reached. It is safe for concurrent use.
type Manager struct {
	cfg        Config
	logger     zerolog.Logger
	backupPath string
	buckets    []string

	mu         sync.Mutex
	client     influxdb2.Client
	writers    map[string]influxdb2_api.WriteAPI
	backup     *gzip.Writer
	backupFile *os.File
}

// NewManager creates a manager writing to the default buckets. backupPath
// may be empty, then points are dropped with an error while offline.
func NewManager(cfg Config, log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		cfg:        cfg,
		logger:     log,
		backupPath: backupPath,
		buckets:    DefaultBucketNames,
		writers:    make(map[string]influxdb2_api.WriteAPI),
	}
}

// Buckets lists the buckets points can be written to.
func (m *Manager) Buckets() []string { return m.buckets }

// Online reports whether points go to InfluxDB rather than the backup file.
func (m *Manager) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.writers) > 0
}

// Connect pings the server and prepares the org, the buckets and their
// writers. An unreachable server is not an error: the backup file is
// opened instead.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	client := influxdb2.NewClientWithOptions(m.cfg.URL, m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)
	running, err := client.Ping(ctx)
	if err != nil || !running {
		client.Close()
		m.logger.Warn().Err(err).Str("url", m.cfg.URL).Str("backupPath", m.backupPath).
			Msg("InfluxDB unreachable, writing to backup file")
		return m.openBackup()
	}

	if err := m.ensureBuckets(ctx, client); err != nil {
		client.Close()
		return err
	}

	m.mu.Lock()
	m.client = client
	for _, bucket := range m.buckets {
		m.writers[bucket] = m.newWriter(bucket)
	}
	m.mu.Unlock()
	m.logger.Info().Str("url", m.cfg.URL).Strs("buckets", m.buckets).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backup != nil || m.backupPath == "" {
		return nil
	}
	f, err := os.OpenFile(m.backupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = f
	m.backup = gzip.NewWriter(f)
	return nil
}

func (m *Manager) ensureBuckets(ctx context.Context, client influxdb2.Client) error {
	orgs := client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, m.cfg.Org)
	if err != nil {
		m.logger.Info().Str("org", m.cfg.Org).Msg("Organization not found, creating")
		org, err = orgs.CreateOrganizationWithName(ctx, m.cfg.Org)
		if err != nil {
			return fmt.Errorf("create organization %q: %w", m.cfg.Org, err)
		}
	}

	days := m.cfg.RetentionDays
	if days <= 0 {
		days = 90
	}
	rule := domain.RetentionRuleTypeExpire
	retention := domain.RetentionRule{Type: &rule, EverySeconds: int64(days * 24 * 60 * 60)}

	buckets := client.BucketsAPI()
	for _, name := range m.buckets {
		if _, err := buckets.FindBucketByName(ctx, name); err == nil {
			continue
		}
		m.logger.Info().Str("bucket", name).Int("retentionDays", days).Msg("Bucket not found, creating")
		if _, err := buckets.CreateBucketWithName(ctx, org, name, retention); err != nil {
			return fmt.Errorf("create bucket %q: %w", name, err)
		}
	}
	return nil
}

// newWriter returns the async writer of bucket and logs what it fails to send.
func (m *Manager) newWriter(bucket string) influxdb2_api.WriteAPI {
	w := m.client.WriteAPI(m.cfg.Org, bucket)
	go func(errs <-chan error) {
		for err := range errs {
			m.logger.Error().Err(err).Str("bucket", bucket).Msg("Error sending data to InfluxDB")
		}
	}(w.Errors())
	return w
}

// WritePoint queues point for bucket.
func (m *Manager) WritePoint(_ context.Context, bucket string, point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.writers) > 0 {
		w, ok := m.writers[bucket]
		if !ok {
			return fmt.Errorf("influx bucket %q not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}
	if m.backup == nil {
		return errors.New("influx is offline and has no backup file")
	}
	line := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.backup.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("error writing to influx backup file: %w", err)
	}
	return nil
}

// Close flushes the writers and the backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil {
		for _, w := range m.writers {
			w.Flush()
		}
		m.client.Close()
		m.client = nil
		m.writers = make(map[string]influxdb2_api.WriteAPI)
	}
	if m.backup == nil {
		return nil
	}
	err := errors.Join(m.backup.Close(), m.backupFile.Close())
	m.backup, m.backupFile = nil, nil
	return err
}
