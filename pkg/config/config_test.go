package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Search.MaxPartitions != 12 {
		t.Errorf("MaxPartitions = %d, want 12", cfg.Search.MaxPartitions)
	}
	if cfg.Search.MaxGeneIntervals != 100 {
		t.Errorf("MaxGeneIntervals = %d, want 100", cfg.Search.MaxGeneIntervals)
	}
	if cfg.Store.Driver != "fs" {
		t.Errorf("Store.Driver = %q, want fs", cfg.Store.Driver)
	}
}

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
server:
  port: 7000
search:
  queryTimeout: 30s
store:
  driver: fs
  root: /data/tables
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VS_STORE_ROOT", "/override")
	t.Setenv("VS_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.Search.QueryTimeout != 30*time.Second {
		t.Errorf("QueryTimeout = %v", cfg.Search.QueryTimeout)
	}
	if cfg.Store.Root != "/override" {
		t.Errorf("Root = %q, want env override", cfg.Store.Root)
	}
	if len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("Brokers = %v", cfg.Kafka.Brokers)
	}
}

func TestLoadRejectsS3WithoutBucket(t *testing.T) {
	t.Setenv("VS_STORE_DRIVER", "s3")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for s3 driver without bucket")
	}
}

func TestAnalyticsOverride(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Analytics.Enabled || cfg.Analytics.SnapshotInterval != time.Minute {
		t.Errorf("unexpected analytics defaults %+v", cfg.Analytics)
	}

	t.Setenv("VS_ANALYTICS_ENABLED", "false")
	cfg, err = Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Analytics.Enabled {
		t.Error("VS_ANALYTICS_ENABLED=false did not disable analytics")
	}
}

func TestDevelopmentConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "development.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Driver != "fs" || cfg.Search.MaxPartitions != 12 || cfg.Search.MaxGeneIntervals != 100 {
		t.Errorf("unexpected config %+v", cfg.Search)
	}
	if cfg.Redis.CacheTTL != 10*time.Minute {
		t.Errorf("CacheTTL = %v", cfg.Redis.CacheTTL)
	}
}
