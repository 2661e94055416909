package clickhouse

import (
	"net/url"
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN(ClientConfig{
		Host:         "ch.local",
		Port:         9000,
		Database:     "pricecast",
		User:         "default",
		Password:     "p@ss:word",
		DialTimeout:  5 * time.Second,
		MaxExecTime:  time.Minute,
		AsyncInsert:  true,
		WaitForAsync: true,
	})

	u, err := url.Parse(dsn)
	if err != nil {
		t.Fatalf("dsn does not parse: %v (%s)", err, dsn)
	}
	if u.Scheme != "clickhouse" || u.Host != "ch.local:9000" || u.Path != "/pricecast" {
		t.Fatalf("unexpected dsn %s", dsn)
	}
	if pw, _ := u.User.Password(); pw != "p@ss:word" {
		t.Fatalf("password not preserved: %q", pw)
	}
	q := u.Query()
	if q.Get("dial_timeout") != "5s" || q.Get("max_execution_time") != "60" {
		t.Fatalf("unexpected query %v", q)
	}
	if q.Get("async_insert") != "1" || q.Get("wait_for_async_insert") != "1" {
		t.Fatalf("async insert flags missing: %v", q)
	}
}

func TestBuildDSNHTTP(t *testing.T) {
	u, err := url.Parse(buildDSN(ClientConfig{Host: "h", Port: 8123, Database: "db", UseHTTP: true}))
	if err != nil {
		t.Fatal(err)
	}
	if u.Scheme != "http" || u.User != nil || u.RawQuery != "" {
		t.Fatalf("unexpected dsn %s", u)
	}
}
