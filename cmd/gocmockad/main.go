// Command gocmockad serves the read-only dashboard API (SPEC_FULL.md §4.N)
// from an in-process MemoryStore. Of the CMOCKA_* configuration it uses only
// the dashboard JWT issuer; it does not read from any report sink.
package main

import (
	"fmt"
	"os"

	"github.com/sharedcode/gocmocka"
	"github.com/sharedcode/gocmocka/config"
	"github.com/sharedcode/gocmocka/report/dashboard"
)

func main() {
	gocmocka.ConfigureLogging()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "gocmockad: loading config:", err)
		os.Exit(1)
	}

	store := dashboard.NewMemoryStore()
	srv := dashboard.New(store, cfg.DashboardJWTIssuer)

	addr := os.Getenv("GOCMOCKA_DASHBOARD_ADDR")
	if addr == "" {
		addr = "localhost:8080"
	}
	if err := srv.Run(addr); err != nil {
		fmt.Fprintln(os.Stderr, "gocmockad:", err)
		os.Exit(1)
	}
}
